package season

import (
	"encoding/json"
	"fmt"
	"time"
)

// Countdown is what the UI shows next to the season leaderboard.
type Countdown struct {
	Remaining time.Duration
	// Resetting is set once the boundary has passed for a profile that has
	// not been reset yet.
	Resetting bool
	EndsAt    time.Time
}

// NewCountdown computes the countdown for a profile last reset at lastReset.
// A zero lastReset skips the resetting check.
func NewCountdown(p Policy, now, lastReset time.Time) Countdown {
	if !lastReset.IsZero() && p.IsSeasonOver(now, lastReset) {
		return Countdown{Resetting: true, EndsAt: now}
	}
	return Countdown{Remaining: p.TimeRemaining(now), EndsAt: p.NextBoundary(now)}
}

func (c Countdown) String() string {
	if c.Resetting {
		return "RESETTING..."
	}
	total := int64(c.Remaining / time.Minute)
	days := total / (24 * 60)
	hours := (total / 60) % 24
	minutes := total % 60
	return fmt.Sprintf("ENDS IN: %dd %dh %dm", days, hours, minutes)
}

func (c Countdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RemainingSeconds int64     `json:"remainingSeconds"`
		Resetting        bool      `json:"resetting"`
		EndsAt           time.Time `json:"endsAt"`
		Label            string    `json:"label"`
	}{
		RemainingSeconds: int64(c.Remaining / time.Second),
		Resetting:        c.Resetting,
		EndsAt:           c.EndsAt,
		Label:            c.String(),
	})
}
