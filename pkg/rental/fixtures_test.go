package rental

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

const (
	fixtureModelID  = "model-compact"
	fixtureUnitID   = "unit-1"
	fixtureUnitID2  = "unit-2"
	fixtureRenterID = "renter-1"
	fixtureOtherID  = "renter-2"
	fixtureSellerID = "seller-1"
)

type fixture struct {
	store  *stubStore
	ledger *Ledger
	logger *recordingLogger
}

func fixedClock() time.Time {
	return baseInstant
}

func sequentialIDs(prefix string) func() string {
	var counter atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, counter.Add(1))
	}
}

func seedStore(test *testing.T, store *stubStore, rates Rates) {
	test.Helper()
	modelID := mustModelID(test, fixtureModelID)
	store.data.models[modelID] = Model{ID: modelID, Name: "Swift", Category: "Hatchback", Rates: rates, SellerID: mustRenterID(test, fixtureSellerID)}
	for index, raw := range []string{fixtureUnitID, fixtureUnitID2} {
		unitID := mustUnitID(test, raw)
		store.data.units[unitID] = Unit{ID: unitID, ModelID: modelID, NumberPlate: fmt.Sprintf("MH01AB123%d", index), Available: true}
	}
	for _, raw := range []string{fixtureRenterID, fixtureOtherID, fixtureSellerID} {
		renterID := mustRenterID(test, raw)
		store.data.renters[renterID] = Renter{ID: renterID, Email: raw + "@example.com", Role: RoleRenter}
	}
}

func newFixture(test *testing.T, rates Rates, options ...LedgerOption) fixture {
	test.Helper()
	store := newStubStore()
	seedStore(test, store, rates)
	logger := &recordingLogger{}
	allOptions := append([]LedgerOption{WithLedgerOperationLogger(logger), WithIDGenerator(sequentialIDs("booking"))}, options...)
	ledger, err := NewLedger(store, fixedClock, NewPricingEngine(0), allOptions...)
	if err != nil {
		test.Fatalf("new ledger: %v", err)
	}
	return fixture{store: store, ledger: ledger, logger: logger}
}

func mustRenterID(test *testing.T, raw string) RenterID {
	test.Helper()
	id, err := NewRenterID(raw)
	if err != nil {
		test.Fatalf("renter id: %v", err)
	}
	return id
}

func mustUnitID(test *testing.T, raw string) UnitID {
	test.Helper()
	id, err := NewUnitID(raw)
	if err != nil {
		test.Fatalf("unit id: %v", err)
	}
	return id
}

func mustModelID(test *testing.T, raw string) ModelID {
	test.Helper()
	id, err := NewModelID(raw)
	if err != nil {
		test.Fatalf("model id: %v", err)
	}
	return id
}

func (f fixture) unit(test *testing.T, raw string) Unit {
	test.Helper()
	f.store.data.mutex.Lock()
	defer f.store.data.mutex.Unlock()
	return f.store.data.units[mustUnitID(test, raw)]
}
