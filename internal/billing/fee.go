// Package billing computes parking fees from elapsed visit time.
package billing

import (
	"time"
)

// Calculate returns the amount due for a visit that started at entry,
// evaluated at now, at ratePerHour. Billing is per started hour with a
// one hour minimum: the elapsed time is rounded up to whole hours and a
// zero-length visit still bills one hour. The reference time is passed in
// so fees are deterministic and testable without wall-clock access.
func Calculate(entry, now time.Time, ratePerHour int64) int64 {
	elapsed := now.Sub(entry)
	if elapsed < 0 {
		elapsed = 0
	}

	hours := int64(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours * ratePerHour
}
