// Package season decides where season boundaries fall. A deployment picks
// exactly one Policy; everything else (lazy reset, bulk reset, countdown,
// winner perks) asks that policy instead of doing date math itself.
package season

import (
	"fmt"
	"time"
)

// Place is a frozen leaderboard position from the last bulk reset.
type Place int

const (
	PlaceNone Place = iota
	PlaceFirst
	PlaceSecond
)

func (p Place) String() string {
	switch p {
	case PlaceFirst:
		return "first"
	case PlaceSecond:
		return "second"
	}
	return "none"
}

// PlaceOf maps the stored winner flags to a Place.
func PlaceOf(isSeasonWinner, isSecondPlace bool) Place {
	switch {
	case isSeasonWinner:
		return PlaceFirst
	case isSecondPlace:
		return PlaceSecond
	}
	return PlaceNone
}

// Policy is a season boundary policy. All methods are pure.
type Policy interface {
	Name() string
	Location() *time.Location

	// IsSeasonOver reports whether a profile last reset at lastReset must
	// be reset at now.
	IsSeasonOver(now, lastReset time.Time) bool
	// NextBoundary is the first boundary strictly after now.
	NextBoundary(now time.Time) time.Time
	// TimeRemaining is never negative.
	TimeRemaining(now time.Time) time.Duration
	// SeasonKey identifies the season containing t.
	SeasonKey(t time.Time) string
	// WinnerPrivilegeActive reports whether place still carries its perks
	// at now.
	WinnerPrivilegeActive(now time.Time, place Place) bool
	// DefaultSchedule is the cron expression firing at each boundary.
	DefaultSchedule() string
}

const (
	NameWeekly  = "weekly"
	NameMonthly = "monthly"
)

// ParsePolicy selects the policy for a deployment.
func ParsePolicy(name string, loc *time.Location) (Policy, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch name {
	case NameWeekly, "":
		return Weekly{Loc: loc}, nil
	case NameMonthly:
		return Monthly{Loc: loc}, nil
	}
	return nil, fmt.Errorf("unknown season policy %q", name)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func remaining(p Policy, now time.Time) time.Duration {
	d := p.NextBoundary(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
