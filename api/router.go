// Package api exposes the season backend over HTTP.
package api

import (
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/gallery"
	"github.com/SlpAus/imagynex-season-backend/internal/leaderboard"
	"github.com/SlpAus/imagynex-season-backend/internal/like"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/config"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/profile"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the services behind the handlers.
type Deps struct {
	Profiles    *profile.Service
	Gallery     *gallery.Service
	Likes       *like.Toggler
	Limiter     *like.Limiter // nil disables throttling
	Board       *leaderboard.Board
	Policy      season.Policy
	Schedule    string
	DB          *gorm.DB
	RedisStatus *database.RedisStatus // nil when redis is disabled
	Signer      *token.Signer
	Log         *logger.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg config.ServerConfig, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Log))
	if len(cfg.Cors.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Cors.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Watermark"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	SetupRoutes(r, deps, cfg.Mode == gin.ReleaseMode)
	return r
}
