package comptime

import (
	"math"
	"time"
)

const (
	// ExpiryDays is how long earned comp time stays usable.
	ExpiryDays = 365
	// ExpiringSoonWindowDays is the display window for the expiring-soon bucket.
	ExpiringSoonWindowDays = 30
)

type ExpiryStatus string

const (
	StatusNormal       ExpiryStatus = "normal"
	StatusExpiringSoon ExpiryStatus = "expiring_soon"
	StatusExpired      ExpiryStatus = "expired"
)

// ComputeExpiry returns the fixed expiry date of an addition: effective date
// plus 365 calendar days. AddDate keeps this calendar-accurate across leap
// years, unlike a fixed 365*86400s offset.
func ComputeExpiry(effectiveDate time.Time) time.Time {
	return effectiveDate.AddDate(0, 0, ExpiryDays)
}

// DaysUntilExpiry returns the signed ceiling day count from now to expiry,
// or nil when there is no expiry (deduction records).
func DaysUntilExpiry(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	return &days
}

// Classify buckets a record by its expiry date. A record expiring exactly
// today (zero days remaining) is expiring-soon, not expired; expiry takes
// effect only once the expiry date is strictly in the past.
func Classify(expiry *time.Time, now time.Time) ExpiryStatus {
	days := DaysUntilExpiry(expiry, now)
	if days == nil {
		return StatusNormal
	}
	if *days < 0 {
		return StatusExpired
	}
	if *days <= ExpiringSoonWindowDays {
		return StatusExpiringSoon
	}
	return StatusNormal
}

// DateOnly truncates a timestamp to its calendar date in UTC. Effective and
// expiry dates are stored at midnight UTC, so date comparisons against this
// value match the database's date-level availability test.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
