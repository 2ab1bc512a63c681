// Package schedule implements interval normalization and the
// temporal-overlap conflict check every event mutation must pass.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

// allDayEndOffset places the end of an all-day interval at
// 23:59:59.999999 within the day, microsecond precision matching the
// stored column type.
const allDayEndOffset = 24*time.Hour - time.Microsecond

// NormalizeInterval converts both instants to UTC and, for all-day
// events, widens the interval to cover the full UTC calendar day of each
// instant regardless of the caller-supplied times.
func NormalizeInterval(start, end time.Time, allDay bool) (time.Time, time.Time) {
	start = start.UTC()
	end = end.UTC()

	if allDay {
		start = startOfDay(start)
		end = startOfDay(end).Add(allDayEndOffset)
	}

	return start, end
}

// ValidateInterval enforces strict ordering of a normalized interval.
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return domain.ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Intervals that touch exactly at a boundary do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Conflicts reports whether the candidate interval overlaps any of the
// given events, skipping the event identified by exclude (used when
// updating, so an event never conflicts with itself). The database-backed
// repository encodes the same predicate in SQL; this form serves in-memory
// checks and tests.
func Conflicts(events []domain.Event, start, end time.Time, exclude *uuid.UUID) bool {
	for i := range events {
		if exclude != nil && events[i].ID == *exclude {
			continue
		}
		if Overlaps(start, end, events[i].StartTime, events[i].EndTime) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
