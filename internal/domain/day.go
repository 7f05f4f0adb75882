package domain

import "time"

// StudyDay returns the midnight-to-midnight bounds, in loc, of the day containing t.
func StudyDay(t time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DaysBetween counts calendar days in loc from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	startA, _ := StudyDay(a, loc)
	startB, _ := StudyDay(b, loc)
	ay, am, ad := startA.Date()
	by, bm, bd := startB.Date()
	// Compare as UTC dates so daylight saving shifts do not skew the count.
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
