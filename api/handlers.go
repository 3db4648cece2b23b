package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/gallery"
	"github.com/SlpAus/imagynex-season-backend/internal/leaderboard"
	"github.com/SlpAus/imagynex-season-backend/internal/like"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/metadata"
	"github.com/SlpAus/imagynex-season-backend/internal/profile"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	Deps
}

type renameRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

type privacyRequest struct {
	IsPrivate *bool `json:"isPrivate" binding:"required"`
}

type leaderboardQuery struct {
	Metric string `form:"metric"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type galleryQuery struct {
	Sort    string `form:"sort"`
	Creator string `form:"creator"`
	Style   string `form:"style"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// SeasonResponse describes the running season.
type SeasonResponse struct {
	Policy           string           `json:"policy"`
	SeasonKey        string           `json:"seasonKey"`
	Schedule         string           `json:"schedule"`
	Countdown        season.Countdown `json:"countdown"`
	NextBoundary     time.Time        `json:"nextBoundary"`
	LastBulkResetAt  *time.Time       `json:"lastBulkResetAt"`
	LastBulkResetKey string           `json:"lastBulkResetSeasonKey,omitempty"`
}

// LeaderboardResponse is one page of the board.
type LeaderboardResponse struct {
	Metric  string              `json:"metric"`
	Entries []leaderboard.Entry `json:"entries"`
}

func (h *handlers) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
	status := http.StatusOK

	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		resp["status"] = "unavailable"
		resp["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if h.RedisStatus != nil {
		resp["redis"] = h.RedisStatus.State().String()
	}
	c.JSON(status, resp)
}

func (h *handlers) getMe(c *gin.Context) {
	view, err := h.Profiles.Load(c.Request.Context(), profile.UserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) renameMe(c *gin.Context) {
	var body renameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid", err)
		return
	}
	p, err := h.Profiles.Rename(c.Request.Context(), profile.UserID(c), body.DisplayName)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) getSeason(c *gin.Context) {
	now := time.Now()
	resp := SeasonResponse{
		Policy:       h.Policy.Name(),
		SeasonKey:    h.Policy.SeasonKey(now),
		Schedule:     h.Schedule,
		Countdown:    season.NewCountdown(h.Policy, now, time.Time{}),
		NextBoundary: h.Policy.NextBoundary(now),
	}

	last, err := metadata.GetLastBulkReset(c.Request.Context(), h.DB)
	if err != nil {
		h.Log.Warn("failed to read bulk reset checkpoint", "error", err)
	} else if !last.At.IsZero() {
		resp.LastBulkResetAt = &last.At
		resp.LastBulkResetKey = last.SeasonKey
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) getLeaderboard(c *gin.Context) {
	var q leaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid", err)
		return
	}
	if q.Metric == "" {
		q.Metric = "periodic"
	}
	field, ok := store.ParseProfileField(q.Metric)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid", fmt.Errorf("unknown metric %q", q.Metric))
		return
	}

	entries, err := h.Board.Top(c.Request.Context(), field, q.Limit, q.Offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, LeaderboardResponse{Metric: string(field), Entries: entries})
}

func (h *handlers) createArtifact(c *gin.Context) {
	var in gallery.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid", err)
		return
	}
	a, err := h.Gallery.Create(c.Request.Context(), profile.UserID(c), in)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) listArtifacts(c *gin.Context) {
	var q galleryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid", err)
		return
	}
	sort := store.ArtifactSort(q.Sort)
	switch sort {
	case "":
		sort = store.SortLatest
	case store.SortLatest, store.SortTrending:
	default:
		respondError(c, http.StatusBadRequest, "invalid", fmt.Errorf("unknown sort %q", q.Sort))
		return
	}

	items, err := h.Gallery.List(c.Request.Context(), profile.UserID(c), store.ArtifactQuery{
		Sort:      sort,
		CreatorID: q.Creator,
		Style:     q.Style,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handlers) getArtifact(c *gin.Context) {
	d, err := h.Gallery.Get(c.Request.Context(), profile.UserID(c), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) setPrivacy(c *gin.Context) {
	var body privacyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid", err)
		return
	}
	id := c.Param("id")
	if err := h.Gallery.SetPrivacy(c.Request.Context(), profile.UserID(c), id, *body.IsPrivate); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isPrivate": *body.IsPrivate})
}

func (h *handlers) deleteArtifact(c *gin.Context) {
	if err := h.Gallery.Delete(c.Request.Context(), profile.UserID(c), c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) toggleLike(c *gin.Context) {
	ctx := c.Request.Context()
	userID := profile.UserID(c)

	slot, err := h.Limiter.Acquire(ctx, userID, time.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer slot.Rollback(ctx)

	res, err := h.Likes.Toggle(ctx, userID, c.Param("id"))
	if err == nil || errors.Is(err, like.ErrPartialToggle) {
		// the liked set moved, so the toggle counts
		slot.Commit()
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) download(c *gin.Context) {
	id := c.Param("id")
	data, plain, err := h.Gallery.Download(c.Request.Context(), profile.UserID(c), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="imagynex-%s.png"`, id))
	c.Header("X-Watermark", strconv.FormatBool(!plain))
	c.Data(http.StatusOK, "image/png", data)
}
