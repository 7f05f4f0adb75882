package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStudyDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	start, end := StudyDay(time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC), tokyo)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, tokyo), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	start, _ = StudyDay(time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), start)
}

func TestDaysBetween(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("time zone database not available")
	}

	testCases := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", time.Date(2026, 3, 10, 1, 0, 0, 0, ny), time.Date(2026, 3, 10, 23, 0, 0, 0, ny), 0},
		{"yesterday late night", time.Date(2026, 3, 9, 23, 59, 0, 0, ny), time.Date(2026, 3, 10, 0, 1, 0, 0, ny), 1},
		{"across daylight saving", time.Date(2026, 3, 7, 12, 0, 0, 0, ny), time.Date(2026, 3, 9, 12, 0, 0, 0, ny), 2},
		{"backwards", time.Date(2026, 3, 10, 12, 0, 0, 0, ny), time.Date(2026, 3, 8, 12, 0, 0, 0, ny), -2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysBetween(tc.a, tc.b, ny))
		})
	}
}
