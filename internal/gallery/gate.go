package gallery

import (
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
)

// SuppressWatermark reports whether the download of a by viewer skips the
// watermark: the viewer owns a and holds a place whose perks are active
// at now.
func SuppressWatermark(policy season.Policy, now time.Time, viewer *store.Profile, a *store.Artifact) bool {
	if viewer == nil || a == nil || a.CreatorID != viewer.ID {
		return false
	}
	place := season.PlaceOf(viewer.IsSeasonWinner, viewer.IsSecondPlace)
	if place == season.PlaceNone {
		return false
	}
	return policy.WinnerPrivilegeActive(now, place)
}
