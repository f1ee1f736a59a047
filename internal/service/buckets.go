package service

import (
	"fmt"
	"time"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// DayStart is midnight of t's day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekStart is the most recent Sunday at 00:00 in loc (t itself on a Sunday).
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := DayStart(t, loc)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// MonthStart is the first of t's month at 00:00 in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	day := DayStart(t, loc)
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
}

// BucketDate returns the bucket start of t for period.
func BucketDate(period model.Period, t time.Time, loc *time.Location) time.Time {
	switch period {
	case model.PeriodWeekly:
		return WeekStart(t, loc)
	case model.PeriodMonthly:
		return MonthStart(t, loc)
	default:
		return DayStart(t, loc)
	}
}

// documentNumber builds a unique human-readable number such as PROC-<unix nano>-<suffix>.
func documentNumber(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, t.UnixNano(), uuid.NewString()[:8])
}
