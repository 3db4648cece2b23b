package gallery

import (
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestSuppressWatermark(t *testing.T) {
	weekly := season.Weekly{Loc: time.UTC}
	tuesday := time.Date(2024, time.January, 9, 15, 0, 0, 0, time.UTC)
	wednesday := tuesday.AddDate(0, 0, 1)
	monday := tuesday.AddDate(0, 0, -1)

	winner := &store.Profile{ID: "w", IsSeasonWinner: true}
	runnerUp := &store.Profile{ID: "r", IsSecondPlace: true}
	own := &store.Artifact{ID: "a", CreatorID: "w"}
	theirs := &store.Artifact{ID: "b", CreatorID: "r"}

	assert.True(t, SuppressWatermark(weekly, tuesday, winner, own))
	assert.False(t, SuppressWatermark(weekly, wednesday, winner, own))
	assert.False(t, SuppressWatermark(weekly, tuesday, winner, theirs), "perk only covers own artifacts")

	assert.True(t, SuppressWatermark(weekly, monday, runnerUp, theirs))
	assert.False(t, SuppressWatermark(weekly, tuesday, runnerUp, theirs))

	assert.False(t, SuppressWatermark(weekly, monday, &store.Profile{ID: "w"}, own))
	assert.False(t, SuppressWatermark(weekly, monday, nil, own))
}
