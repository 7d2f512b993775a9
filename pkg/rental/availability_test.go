package rental

import (
	"context"
	"errors"
	"testing"
)

func newIndex(test *testing.T, store *stubStore) *AvailabilityIndex {
	test.Helper()
	index, err := NewAvailabilityIndex(store)
	if err != nil {
		test.Fatalf("new index: %v", err)
	}
	return index
}

func unitIDs(units []Unit) []string {
	ids := make([]string, 0, len(units))
	for _, unit := range units {
		ids = append(ids, unit.ID.String())
	}
	return ids
}

func TestAvailableUnitsShortCircuitsWithoutBookings(test *testing.T) {
	test.Parallel()
	f := newFixture(test, Rates{Hourly: 100, Daily: 500})
	index := newIndex(test, f.store)
	units, err := index.AvailableUnits(context.Background(), mustModelID(test, fixtureModelID), mustWindow(test, at(0), at(60)))
	if err != nil {
		test.Fatalf("available units: %v", err)
	}
	if len(units) != 2 {
		test.Fatalf(errorMismatchMessage, 2, len(units))
	}
	listAvailable, listExcluding, _ := f.store.counters()
	if listAvailable != 1 || listExcluding != 0 {
		test.Fatalf("expected short-circuit query, got available=%d excluding=%d", listAvailable, listExcluding)
	}
}

func TestAvailableUnitsExcludesOverlappingBookings(test *testing.T) {
	test.Parallel()
	f := newFixture(test, Rates{Hourly: 100, Daily: 500})
	if _, err := createHourly(test, f, fixtureRenterID, fixtureUnitID, 60, 180); err != nil {
		test.Fatalf("create: %v", err)
	}
	index := newIndex(test, f.store)
	units, err := index.AvailableUnits(context.Background(), mustModelID(test, fixtureModelID), mustWindow(test, at(120), at(240)))
	if err != nil {
		test.Fatalf("available units: %v", err)
	}
	if ids := unitIDs(units); len(ids) != 1 || ids[0] != fixtureUnitID2 {
		test.Fatalf(errorMismatchMessage, []string{fixtureUnitID2}, ids)
	}
	_, listExcluding, _ := f.store.counters()
	if listExcluding != 1 {
		test.Fatalf(errorMismatchMessage, 1, listExcluding)
	}
}

func TestAvailableUnitsEmptyExclusionMatchesUnfilteredQuery(test *testing.T) {
	test.Parallel()
	f := newFixture(test, Rates{Hourly: 100, Daily: 500})
	modelID := mustModelID(test, fixtureModelID)
	direct, err := f.store.ListAvailableUnits(context.Background(), modelID)
	if err != nil {
		test.Fatalf("list available: %v", err)
	}
	excluding, err := f.store.ListAvailableUnitsExcluding(context.Background(), modelID, nil)
	if err != nil {
		test.Fatalf("list excluding: %v", err)
	}
	left, right := unitIDs(direct), unitIDs(excluding)
	if len(left) != len(right) {
		test.Fatalf(errorMismatchMessage, left, right)
	}
	for position := range left {
		if left[position] != right[position] {
			test.Fatalf(errorMismatchMessage, left, right)
		}
	}
}

func TestAvailableUnitsForDates(test *testing.T) {
	test.Parallel()
	f := newFixture(test, Rates{Hourly: 100, Daily: 500})
	if _, err := f.ledger.CreateForDates(context.Background(), mustRenterID(test, fixtureRenterID), mustUnitID(test, fixtureUnitID), mustDates(test, "2024-01-01", "2024-01-03"), MetadataJSON{}); err != nil {
		test.Fatalf("create for dates: %v", err)
	}
	index := newIndex(test, f.store)
	units, err := index.AvailableUnitsForDates(context.Background(), mustModelID(test, fixtureModelID), mustDates(test, "2024-01-03", "2024-01-05"))
	if err != nil {
		test.Fatalf("available for dates: %v", err)
	}
	if ids := unitIDs(units); len(ids) != 1 || ids[0] != fixtureUnitID2 {
		test.Fatalf(errorMismatchMessage, []string{fixtureUnitID2}, ids)
	}
}

func TestAvailableUnitsErrors(test *testing.T) {
	test.Parallel()
	f := newFixture(test, Rates{Hourly: 100, Daily: 500})
	index := newIndex(test, f.store)
	if _, err := index.AvailableUnits(context.Background(), mustModelID(test, "ghost"), mustWindow(test, at(0), at(60))); !errors.Is(err, ErrModelNotFound) {
		test.Fatalf(errorMismatchMessage, ErrModelNotFound, err)
	}
	f.store.errBookedUnitIDs = errStoreFailure
	if _, err := index.AvailableUnits(context.Background(), mustModelID(test, fixtureModelID), mustWindow(test, at(0), at(60))); !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
	if _, err := NewAvailabilityIndex(nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf(errorMismatchMessage, ErrInvalidServiceConfig, err)
	}
}
