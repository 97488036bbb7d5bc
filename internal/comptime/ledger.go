package comptime

import (
	"errors"
	"fmt"
)

// ErrAllocationShortfall signals that the FIFO walk could not fully satisfy a
// deduction that already passed the balance check. That can only happen when
// stored allocations are corrupted, so callers must abort the transaction.
var ErrAllocationShortfall = errors.New("ledger allocation could not satisfy validated deduction")

// AdditionBalance is one unexpired addition together with everything ever
// deducted from it. The slice handed to the ledger functions is the single
// snapshot read per transaction: the same data validates the request and
// drives the allocation, so no second, half-stale read can open a race
// window.
type AdditionBalance struct {
	RecordID        int64
	Hours           int
	Minutes         int
	ConsumedMinutes int
}

// RemainingMinutes returns what is left of this addition. A negative result
// would mean the mappings overran the addition's own quantity.
func (a AdditionBalance) RemainingMinutes() int {
	return ToMinutes(a.Hours, a.Minutes) - a.ConsumedMinutes
}

// AvailableMinutes sums the remaining minutes over a snapshot of unexpired
// additions.
func AvailableMinutes(additions []AdditionBalance) int {
	total := 0
	for _, a := range additions {
		total += a.RemainingMinutes()
	}
	return total
}

// Allocation is one slice of a deduction drawn from a single source addition.
type Allocation struct {
	SourceRecordID int64
	Hours          int
	Minutes        int
}

// Allocate walks the snapshot in FIFO order and splits a deduction of
// requestedMinutes across the oldest additions first. The snapshot must
// already be ordered (effective_date ASC, created_at ASC); oldest time is
// closest to expiring, so consuming it first minimizes forced expiry loss.
//
// Callers must have verified requestedMinutes <= AvailableMinutes(additions)
// beforehand; a shortfall here is an internal-consistency failure, not a
// valid runtime outcome.
func Allocate(additions []AdditionBalance, requestedMinutes int) ([]Allocation, error) {
	if requestedMinutes <= 0 {
		return nil, fmt.Errorf("requested minutes must be positive, got %d", requestedMinutes)
	}

	var allocations []Allocation
	stillNeeded := requestedMinutes

	for _, add := range additions {
		if stillNeeded <= 0 {
			break
		}
		remaining := add.RemainingMinutes()
		if remaining <= 0 {
			continue
		}
		take := remaining
		if stillNeeded < take {
			take = stillNeeded
		}
		q := FromMinutes(take)
		allocations = append(allocations, Allocation{
			SourceRecordID: add.RecordID,
			Hours:          q.Hours,
			Minutes:        q.Minutes,
		})
		stillNeeded -= take
	}

	if stillNeeded > 0 {
		return nil, fmt.Errorf("%w: %d minutes unallocated of %d requested",
			ErrAllocationShortfall, stillNeeded, requestedMinutes)
	}

	return allocations, nil
}
