package config

import (
	"time"
)

// NextRun returns the next wall-clock time this schedule fires strictly
// after the given instant.
func (s *Schedule) NextRun(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.Hour, s.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
