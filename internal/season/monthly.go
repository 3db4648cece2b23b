package season

import "time"

// Monthly seasons end at 00:00 on the 1st. First place keeps its perks on
// days 1 and 2, second place on day 1.
type Monthly struct {
	Loc *time.Location
}

func (m Monthly) Name() string { return NameMonthly }

func (m Monthly) Location() *time.Location { return m.Loc }

func (m Monthly) IsSeasonOver(now, lastReset time.Time) bool {
	n, l := now.In(m.Loc), lastReset.In(m.Loc)
	return n.Year() != l.Year() || n.Month() != l.Month()
}

func (m Monthly) NextBoundary(now time.Time) time.Time {
	n := now.In(m.Loc)
	return time.Date(n.Year(), n.Month()+1, 1, 0, 0, 0, 0, m.Loc)
}

func (m Monthly) TimeRemaining(now time.Time) time.Duration {
	return remaining(m, now)
}

func (m Monthly) SeasonKey(t time.Time) string {
	return NameMonthly + ":" + t.In(m.Loc).Format("2006-01")
}

func (m Monthly) WinnerPrivilegeActive(now time.Time, place Place) bool {
	switch now.In(m.Loc).Day() {
	case 1:
		return place == PlaceFirst || place == PlaceSecond
	case 2:
		return place == PlaceFirst
	}
	return false
}

func (m Monthly) DefaultSchedule() string { return "0 0 1 * *" }
