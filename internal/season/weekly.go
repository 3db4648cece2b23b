package season

import "time"

// Weekly seasons end at Sunday 00:00 local time. First place keeps its perks
// on Monday and Tuesday, second place on Monday only.
type Weekly struct {
	Loc *time.Location
}

func (w Weekly) Name() string { return NameWeekly }

func (w Weekly) Location() *time.Location { return w.Loc }

// IsSeasonOver only fires on Sunday: a profile first seen later in the week
// is zeroed by the bulk job instead.
func (w Weekly) IsSeasonOver(now, lastReset time.Time) bool {
	n := now.In(w.Loc)
	return n.Weekday() == time.Sunday && !sameDate(n, lastReset.In(w.Loc))
}

func (w Weekly) NextBoundary(now time.Time) time.Time {
	start := w.seasonStart(now)
	return start.AddDate(0, 0, 7)
}

func (w Weekly) TimeRemaining(now time.Time) time.Duration {
	return remaining(w, now)
}

func (w Weekly) SeasonKey(t time.Time) string {
	return NameWeekly + ":" + w.seasonStart(t).Format(time.DateOnly)
}

func (w Weekly) WinnerPrivilegeActive(now time.Time, place Place) bool {
	switch now.In(w.Loc).Weekday() {
	case time.Monday:
		return place == PlaceFirst || place == PlaceSecond
	case time.Tuesday:
		return place == PlaceFirst
	}
	return false
}

func (w Weekly) DefaultSchedule() string { return "0 0 * * 0" }

// seasonStart is the most recent Sunday 00:00 at or before t.
func (w Weekly) seasonStart(t time.Time) time.Time {
	l := t.In(w.Loc)
	y, m, d := l.Date()
	return time.Date(y, m, d-int(l.Weekday()), 0, 0, 0, 0, w.Loc)
}
