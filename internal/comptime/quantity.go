package comptime

import "fmt"

// TimeQuantity is an (hours, minutes) pair. Amounts at rest always keep
// minutes < 60; intermediate sums are renormalized through FromMinutes.
type TimeQuantity struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ToMinutes converts an (hours, minutes) pair to a single minute count.
// No bounds checking; validation happens at the DTO boundary.
func ToMinutes(hours, minutes int) int {
	return hours*60 + minutes
}

// FromMinutes converts a non-negative minute count back to (hours, minutes).
// The ledger never produces a negative total, so a negative argument is a
// caller bug.
func FromMinutes(total int) TimeQuantity {
	return TimeQuantity{Hours: total / 60, Minutes: total % 60}
}

// FormatTime renders a quantity as "H:MM" for display: hours unpadded,
// minutes zero-padded to two digits.
func FormatTime(hours, minutes int) string {
	return fmt.Sprintf("%d:%02d", hours, minutes)
}

func (q TimeQuantity) String() string {
	return FormatTime(q.Hours, q.Minutes)
}
