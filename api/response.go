package api

import (
	"errors"
	"net/http"

	"github.com/SlpAus/imagynex-season-backend/internal/gallery"
	"github.com/SlpAus/imagynex-season-backend/internal/like"
	"github.com/SlpAus/imagynex-season-backend/internal/profile"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{
		Message:   msg,
		Code:      code,
		Retryable: status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests,
	}})
}

// respondDomainError maps service errors onto status codes. A partial like
// toggle is not retryable: retrying would flip the membership back.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, like.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, like.ErrPartialToggle):
		respondError(c, http.StatusInternalServerError, "partial_toggle", err)
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, gallery.ErrPrivate):
		respondError(c, http.StatusForbidden, "private", err)
	case errors.Is(err, gallery.ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, gallery.ErrInvalid), errors.Is(err, profile.ErrInvalidName), errors.Is(err, store.ErrUnknownField):
		respondError(c, http.StatusBadRequest, "invalid", err)
	case errors.Is(err, gallery.ErrUpstream):
		respondError(c, http.StatusBadGateway, "upstream", err)
	case store.IsTransient(err):
		respondError(c, http.StatusServiceUnavailable, "unavailable", err)
	default:
		respondError(c, http.StatusInternalServerError, "internal", err)
	}
}
