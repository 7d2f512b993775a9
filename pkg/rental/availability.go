package rental

import (
	"context"
	"fmt"
)

// AvailabilityIndex answers which units of a model are free in a window.
// Results are best effort; the ledger's create-time check is authoritative.
type AvailabilityIndex struct {
	store Store
}

// NewAvailabilityIndex wires an AvailabilityIndex.
func NewAvailabilityIndex(store Store) (*AvailabilityIndex, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	return &AvailabilityIndex{store: store}, nil
}

// AvailableUnits returns units of modelID flagged available with no BOOKED booking overlapping window.
func (index *AvailabilityIndex) AvailableUnits(ctx context.Context, modelID ModelID, window Window) ([]Unit, error) {
	if _, err := index.store.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	bookedUnitIDs, err := index.store.BookedUnitIDs(ctx, window)
	if err != nil {
		return nil, err
	}
	if len(bookedUnitIDs) == 0 {
		return index.store.ListAvailableUnits(ctx, modelID)
	}
	return index.store.ListAvailableUnitsExcluding(ctx, modelID, bookedUnitIDs)
}

// AvailableUnitsForDates applies the inclusive whole-day test through the range's span.
func (index *AvailabilityIndex) AvailableUnitsForDates(ctx context.Context, modelID ModelID, dates DateRange) ([]Unit, error) {
	return index.AvailableUnits(ctx, modelID, dates.Window())
}
