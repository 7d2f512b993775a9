package rental

import (
	"context"
	"fmt"
	"strings"
)

const (
	conflictPolicyUnit   = "unit"
	conflictPolicyRenter = "renter"
	lockKeyUnitPrefix    = "unit:"
	lockKeyRenterPrefix  = "renter:"
)

// ConflictCandidate is a booking being checked before insertion.
type ConflictCandidate struct {
	RenterID RenterID
	UnitID   UnitID
	Window   Window
}

// ConflictPolicy detects active bookings that forbid a candidate.
type ConflictPolicy interface {
	Name() string
	// LockKey names the resource the ledger serializes on while this policy is checked.
	LockKey(candidate ConflictCandidate) string
	// LockRows takes the row locks that serialize this policy across processes inside the transaction.
	LockRows(ctx context.Context, store Store, candidate ConflictCandidate) error
	Conflicts(ctx context.Context, store BookingStore, candidate ConflictCandidate) ([]Booking, error)
}

// UnitConflictPolicy forbids overlapping active bookings on the same unit.
type UnitConflictPolicy struct{}

func (UnitConflictPolicy) Name() string { return conflictPolicyUnit }

func (UnitConflictPolicy) LockKey(candidate ConflictCandidate) string {
	return unitLockKey(candidate.UnitID)
}

// LockRows is a no-op: the ledger locks the unit row before any policy runs.
func (UnitConflictPolicy) LockRows(context.Context, Store, ConflictCandidate) error { return nil }

func (UnitConflictPolicy) Conflicts(ctx context.Context, store BookingStore, candidate ConflictCandidate) ([]Booking, error) {
	return store.FindOverlappingForUnit(ctx, candidate.UnitID, candidate.Window)
}

// RenterConflictPolicy forbids one renter from holding overlapping active bookings on any unit.
type RenterConflictPolicy struct{}

func (RenterConflictPolicy) Name() string { return conflictPolicyRenter }

func (RenterConflictPolicy) LockKey(candidate ConflictCandidate) string {
	return lockKeyRenterPrefix + candidate.RenterID.String()
}

func (RenterConflictPolicy) LockRows(ctx context.Context, store Store, candidate ConflictCandidate) error {
	return store.LockRenter(ctx, candidate.RenterID)
}

func (RenterConflictPolicy) Conflicts(ctx context.Context, store BookingStore, candidate ConflictCandidate) ([]Booking, error) {
	return store.FindOverlappingForRenter(ctx, candidate.RenterID, candidate.Window)
}

// ParseConflictPolicies parses a comma separated list such as "unit,renter".
// The unit policy is always included.
func ParseConflictPolicies(raw string) ([]ConflictPolicy, error) {
	policies := []ConflictPolicy{UnitConflictPolicy{}}
	seen := map[string]bool{conflictPolicyUnit: true}
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case conflictPolicyRenter:
			policies = append(policies, RenterConflictPolicy{})
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidConflictPolicy, name)
		}
		seen[name] = true
	}
	return policies, nil
}

func ensureUnitPolicy(policies []ConflictPolicy) []ConflictPolicy {
	for _, policy := range policies {
		if _, ok := policy.(UnitConflictPolicy); ok {
			return policies
		}
	}
	return append([]ConflictPolicy{UnitConflictPolicy{}}, policies...)
}

func unitLockKey(unitID UnitID) string {
	return lockKeyUnitPrefix + unitID.String()
}
