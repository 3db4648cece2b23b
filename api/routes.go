package api

import (
	"github.com/SlpAus/imagynex-season-backend/internal/profile"
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every route. secureCookie marks the identity
// cookie Secure.
func SetupRoutes(router *gin.Engine, deps Deps, secureCookie bool) {
	h := &handlers{Deps: deps}

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.Use(profile.IdentityMiddleware(deps.Signer, secureCookie, deps.Log))
	{
		api.GET("/me", h.getMe)
		api.PATCH("/me", h.renameMe)

		api.GET("/season", h.getSeason)
		api.GET("/leaderboard", h.getLeaderboard)

		galleryRoutes := api.Group("/gallery")
		{
			galleryRoutes.POST("", h.createArtifact)
			galleryRoutes.GET("", h.listArtifacts)
			galleryRoutes.GET("/:id", h.getArtifact)
			galleryRoutes.PATCH("/:id/privacy", h.setPrivacy)
			galleryRoutes.DELETE("/:id", h.deleteArtifact)
			galleryRoutes.POST("/:id/like", h.toggleLike)
			galleryRoutes.GET("/:id/download", h.download)
		}
	}
}
