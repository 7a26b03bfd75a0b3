package utils

import (
	"fmt"
	"math"
	"time"
)

type TimeUnit string

const (
	Hour       TimeUnit = "hour"
	Day        TimeUnit = "day"
	Week       TimeUnit = "week"
	Month      TimeUnit = "month"
	Year       TimeUnit = "year"
	FiscalYear TimeUnit = "fy"
)

// maxHours is the largest hour count a time.Duration can hold.
const maxHours = math.MaxInt64 / int64(time.Hour)

// maxUnits caps how far back a "last n units" query may reach. Hours are
// only bounded by maxHours.
var maxUnits = map[TimeUnit]int{
	Day:        90,
	Week:       12,
	Month:      36,
	Year:       5,
	FiscalYear: 5,
}

func ParseTimeUnit(s string) (TimeUnit, error) {
	switch u := TimeUnit(s); u {
	case Hour, Day, Week, Month, Year, FiscalYear:
		return u, nil
	}
	return "", fmt.Errorf("time unit must be either 'hour', 'day', 'week', 'month', 'year' or 'fy'")
}

// CheckUnits reports whether n units of u is within the allowed window.
func CheckUnits(u TimeUnit, n int) error {
	if n < 0 {
		return fmt.Errorf("units must be a non-negative integer")
	}
	if u == Hour && int64(n) > maxHours {
		return fmt.Errorf("maximum units for %s is %d", u, maxHours)
	}
	if limit, ok := maxUnits[u]; ok && n > limit {
		return fmt.Errorf("maximum units for %s is %d", u, limit)
	}
	return nil
}

// DateRange returns the window covering the last n units ending at now.
//
// Hours, days and weeks are rolling windows. Months start on the first day
// of the month n months back, years on January 1st and fiscal years on
// April 1st, all in now's location.
func DateRange(u TimeUnit, n int, now time.Time) (start, end time.Time) {
	end = now
	loc := now.Location()

	switch u {
	case Hour:
		start = now.Add(-time.Duration(n) * time.Hour)
	case Day:
		start = now.AddDate(0, 0, -n)
	case Week:
		start = now.AddDate(0, 0, -7*n)
	case Month:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -n, 0)
	case Year:
		start = time.Date(now.Year()-n, time.January, 1, 0, 0, 0, 0, loc)
	case FiscalYear:
		fyStart := now.Year()
		if now.Month() < time.April {
			fyStart--
		}
		start = time.Date(fyStart-n, time.April, 1, 0, 0, 0, 0, loc)
	default:
		start = now
	}

	return start, end
}
