package rental

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

const errorMismatchMessage = "expected %v, got %v"

var errStoreFailure = errors.New("store failure")

type stubData struct {
	mutex    sync.Mutex
	units    map[UnitID]Unit
	models   map[ModelID]Model
	renters  map[RenterID]Renter
	bookings map[BookingID]Booking

	listAvailableCalls int
	listExcludingCalls int
	insertBookingCalls int
	lockRenterCalls    int
}

type stubSnapshot struct {
	units    map[UnitID]Unit
	models   map[ModelID]Model
	renters  map[RenterID]Renter
	bookings map[BookingID]Booking
}

// stubStore is an in-memory Store. Transactions restore a snapshot on error.
// Concurrent transactions are only isolated when serializeTx is set.
type stubStore struct {
	data        *stubData
	txMutex     *sync.Mutex
	serializeTx bool
	checkDelay  time.Duration

	errLockUnit      error
	errGetModel      error
	errInsertBooking error
	errCountActive   error
	errRenterExists  error
	errLockRenter    error
	errBookedUnitIDs error
	errListUnits     error
	errCreateModel   error
}

func newStubStore() *stubStore {
	return &stubStore{
		data: &stubData{
			units:    make(map[UnitID]Unit),
			models:   make(map[ModelID]Model),
			renters:  make(map[RenterID]Renter),
			bookings: make(map[BookingID]Booking),
		},
		txMutex: &sync.Mutex{},
	}
}

func (store *stubStore) copyFor() *stubStore {
	clone := *store
	return &clone
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.serializeTx {
		store.txMutex.Lock()
		defer store.txMutex.Unlock()
	}
	snapshot := store.snapshot()
	if err := fn(ctx, store.copyFor()); err != nil {
		store.restore(snapshot)
		return err
	}
	return nil
}

func (store *stubStore) snapshot() stubSnapshot {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	return stubSnapshot{
		units:    maps.Clone(store.data.units),
		models:   maps.Clone(store.data.models),
		renters:  maps.Clone(store.data.renters),
		bookings: maps.Clone(store.data.bookings),
	}
}

func (store *stubStore) restore(snapshot stubSnapshot) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	store.data.units = snapshot.units
	store.data.models = snapshot.models
	store.data.renters = snapshot.renters
	store.data.bookings = snapshot.bookings
}

func (store *stubStore) GetUnit(_ context.Context, unitID UnitID) (Unit, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	unit, ok := store.data.units[unitID]
	if !ok {
		return Unit{}, WrapError("store", "unit", "get", ErrUnitNotFound)
	}
	return unit, nil
}

func (store *stubStore) LockUnit(ctx context.Context, unitID UnitID) (Unit, error) {
	if store.errLockUnit != nil {
		return Unit{}, store.errLockUnit
	}
	return store.GetUnit(ctx, unitID)
}

func (store *stubStore) ListUnits(_ context.Context) ([]Unit, error) {
	if store.errListUnits != nil {
		return nil, store.errListUnits
	}
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	return sortedUnits(slices.Collect(maps.Values(store.data.units))), nil
}

func (store *stubStore) UnitsForModel(_ context.Context, modelID ModelID) ([]Unit, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	units := make([]Unit, 0)
	for _, unit := range store.data.units {
		if unit.ModelID == modelID {
			units = append(units, unit)
		}
	}
	return sortedUnits(units), nil
}

func (store *stubStore) ListAvailableUnits(_ context.Context, modelID ModelID) ([]Unit, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	store.data.listAvailableCalls++
	units := make([]Unit, 0)
	for _, unit := range store.data.units {
		if unit.ModelID == modelID && unit.Available {
			units = append(units, unit)
		}
	}
	return sortedUnits(units), nil
}

func (store *stubStore) ListAvailableUnitsExcluding(_ context.Context, modelID ModelID, excluded []UnitID) ([]Unit, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	store.data.listExcludingCalls++
	units := make([]Unit, 0)
	for _, unit := range store.data.units {
		if unit.ModelID == modelID && unit.Available && !slices.Contains(excluded, unit.ID) {
			units = append(units, unit)
		}
	}
	return sortedUnits(units), nil
}

func (store *stubStore) UnitExists(_ context.Context, unitID UnitID) (bool, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	_, ok := store.data.units[unitID]
	return ok, nil
}

func (store *stubStore) SetUnitAvailability(_ context.Context, unitID UnitID, available bool) error {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	unit, ok := store.data.units[unitID]
	if !ok {
		return ErrUnitNotFound
	}
	unit.Available = available
	store.data.units[unitID] = unit
	return nil
}

func (store *stubStore) CreateUnit(_ context.Context, unit Unit) error {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	for _, existing := range store.data.units {
		if existing.NumberPlate == unit.NumberPlate {
			return WrapError("store", "unit", "duplicate", ErrDuplicateNumberPlate)
		}
	}
	store.data.units[unit.ID] = unit
	return nil
}

func (store *stubStore) GetModel(_ context.Context, modelID ModelID) (Model, error) {
	if store.errGetModel != nil {
		return Model{}, store.errGetModel
	}
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	model, ok := store.data.models[modelID]
	if !ok {
		return Model{}, WrapError("store", "model", "get", ErrModelNotFound)
	}
	return model, nil
}

func (store *stubStore) CreateModel(_ context.Context, model Model) error {
	if store.errCreateModel != nil {
		return store.errCreateModel
	}
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	store.data.models[model.ID] = model
	return nil
}

func (store *stubStore) ListModels(_ context.Context) ([]Model, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	models := slices.Collect(maps.Values(store.data.models))
	slices.SortFunc(models, func(left, right Model) int {
		return compareStrings(left.ID.String(), right.ID.String())
	})
	return models, nil
}

func (store *stubStore) ModelsForSeller(_ context.Context, sellerID RenterID) ([]Model, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	models := make([]Model, 0)
	for _, model := range store.data.models {
		if model.SellerID == sellerID {
			models = append(models, model)
		}
	}
	return models, nil
}

func (store *stubStore) DeleteModel(_ context.Context, modelID ModelID) error {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	delete(store.data.models, modelID)
	return nil
}

func (store *stubStore) CountUnitsForModel(_ context.Context, modelID ModelID) (int64, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	var count int64
	for _, unit := range store.data.units {
		if unit.ModelID == modelID {
			count++
		}
	}
	return count, nil
}

func (store *stubStore) LockRenter(_ context.Context, renterID RenterID) error {
	if store.errLockRenter != nil {
		return store.errLockRenter
	}
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	if _, ok := store.data.renters[renterID]; !ok {
		return ErrRenterNotFound
	}
	store.data.lockRenterCalls++
	return nil
}

func (store *stubStore) RenterExists(_ context.Context, renterID RenterID) (bool, error) {
	if store.errRenterExists != nil {
		return false, store.errRenterExists
	}
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	_, ok := store.data.renters[renterID]
	return ok, nil
}

func (store *stubStore) CreateRenter(_ context.Context, renter Renter) error {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	for _, existing := range store.data.renters {
		if existing.Email == renter.Email {
			return ErrDuplicateEmail
		}
	}
	store.data.renters[renter.ID] = renter
	return nil
}

func (store *stubStore) GetRenterByEmail(_ context.Context, email string) (Renter, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	for _, renter := range store.data.renters {
		if renter.Email == email {
			return renter, nil
		}
	}
	return Renter{}, ErrRenterNotFound
}

func (store *stubStore) GetBooking(_ context.Context, bookingID BookingID) (Booking, error) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	booking, ok := store.data.bookings[bookingID]
	if !ok {
		return Booking{}, WrapError("store", "booking", "get", ErrBookingNotFound)
	}
	return booking, nil
}

func (store *stubStore) ListBookingsByRenter(_ context.Context, renterID RenterID) ([]Booking, error) {
	return store.filterBookings(func(booking Booking) bool { return booking.RenterID == renterID }), nil
}

func (store *stubStore) ListBookingsBySeller(_ context.Context, sellerID RenterID) ([]Booking, error) {
	store.data.mutex.Lock()
	owned := make(map[UnitID]bool)
	for _, unit := range store.data.units {
		if store.data.models[unit.ModelID].SellerID == sellerID {
			owned[unit.ID] = true
		}
	}
	store.data.mutex.Unlock()
	return store.filterBookings(func(booking Booking) bool { return owned[booking.UnitID] }), nil
}

func (store *stubStore) ListBookings(_ context.Context) ([]Booking, error) {
	return store.filterBookings(func(Booking) bool { return true }), nil
}

func (store *stubStore) FindOverlappingForUnit(_ context.Context, unitID UnitID, window Window) ([]Booking, error) {
	store.widenRace()
	return store.filterBookings(func(booking Booking) bool {
		return booking.UnitID == unitID && booking.Status == BookingStatusBooked && booking.Window().Overlaps(window)
	}), nil
}

func (store *stubStore) FindOverlappingForRenter(_ context.Context, renterID RenterID, window Window) ([]Booking, error) {
	return store.filterBookings(func(booking Booking) bool {
		return booking.RenterID == renterID && booking.Status == BookingStatusBooked && booking.Window().Overlaps(window)
	}), nil
}

func (store *stubStore) BookedUnitIDs(_ context.Context, window Window) ([]UnitID, error) {
	if store.errBookedUnitIDs != nil {
		return nil, store.errBookedUnitIDs
	}
	bookings := store.filterBookings(func(booking Booking) bool {
		return booking.Status == BookingStatusBooked && booking.Window().Overlaps(window)
	})
	unitIDs := make([]UnitID, 0, len(bookings))
	for _, booking := range bookings {
		if !slices.Contains(unitIDs, booking.UnitID) {
			unitIDs = append(unitIDs, booking.UnitID)
		}
	}
	return unitIDs, nil
}

func (store *stubStore) CountActiveForUnit(_ context.Context, unitID UnitID) (int64, error) {
	if store.errCountActive != nil {
		return 0, store.errCountActive
	}
	active := store.filterBookings(func(booking Booking) bool {
		return booking.UnitID == unitID && booking.Status == BookingStatusBooked
	})
	return int64(len(active)), nil
}

func (store *stubStore) InsertBooking(_ context.Context, booking Booking) error {
	if store.errInsertBooking != nil {
		return store.errInsertBooking
	}
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	store.data.insertBookingCalls++
	store.data.bookings[booking.ID] = booking
	return nil
}

func (store *stubStore) UpdateBooking(_ context.Context, booking Booking, from BookingStatus) error {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	existing, ok := store.data.bookings[booking.ID]
	if !ok {
		return ErrBookingNotFound
	}
	if existing.Status != from {
		return ErrBookingClosed
	}
	store.data.bookings[booking.ID] = booking
	return nil
}

func (store *stubStore) filterBookings(keep func(Booking) bool) []Booking {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	bookings := make([]Booking, 0)
	for _, booking := range store.data.bookings {
		if keep(booking) {
			bookings = append(bookings, booking)
		}
	}
	return bookings
}

func (store *stubStore) widenRace() {
	if store.checkDelay > 0 {
		time.Sleep(store.checkDelay)
	}
}

func (store *stubStore) counters() (listAvailable int, listExcluding int, inserts int) {
	store.data.mutex.Lock()
	defer store.data.mutex.Unlock()
	return store.data.listAvailableCalls, store.data.listExcludingCalls, store.data.insertBookingCalls
}

func sortedUnits(units []Unit) []Unit {
	slices.SortFunc(units, func(left, right Unit) int {
		return compareStrings(left.ID.String(), right.ID.String())
	})
	return units
}

func compareStrings(left string, right string) int {
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

type recordingLogger struct {
	mutex   sync.Mutex
	entries []OperationLog
}

func (logger *recordingLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recordingLogger) snapshot() []OperationLog {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	return slices.Clone(logger.entries)
}

type recordingPublisher struct {
	mutex  sync.Mutex
	events []BookingEvent
	err    error
}

func (publisher *recordingPublisher) Publish(_ context.Context, event BookingEvent) error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	publisher.events = append(publisher.events, event)
	return publisher.err
}

func (publisher *recordingPublisher) types() []EventType {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	types := make([]EventType, 0, len(publisher.events))
	for _, event := range publisher.events {
		types = append(types, event.Type)
	}
	return types
}
