package rental

import "context"

// UnitStore persists units.
type UnitStore interface {
	GetUnit(ctx context.Context, unitID UnitID) (Unit, error)
	// LockUnit reads a unit and holds a row lock until the surrounding transaction ends.
	LockUnit(ctx context.Context, unitID UnitID) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	UnitsForModel(ctx context.Context, modelID ModelID) ([]Unit, error)
	ListAvailableUnits(ctx context.Context, modelID ModelID) ([]Unit, error)
	ListAvailableUnitsExcluding(ctx context.Context, modelID ModelID, excluded []UnitID) ([]Unit, error)
	UnitExists(ctx context.Context, unitID UnitID) (bool, error)
	SetUnitAvailability(ctx context.Context, unitID UnitID, available bool) error
	CreateUnit(ctx context.Context, unit Unit) error
}

// ModelStore persists models.
type ModelStore interface {
	GetModel(ctx context.Context, modelID ModelID) (Model, error)
	CreateModel(ctx context.Context, model Model) error
	ListModels(ctx context.Context) ([]Model, error)
	ModelsForSeller(ctx context.Context, sellerID RenterID) ([]Model, error)
	DeleteModel(ctx context.Context, modelID ModelID) error
	CountUnitsForModel(ctx context.Context, modelID ModelID) (int64, error)
}

// RenterStore persists renter accounts.
type RenterStore interface {
	RenterExists(ctx context.Context, renterID RenterID) (bool, error)
	// LockRenter holds a row lock on the renter until the surrounding transaction ends.
	LockRenter(ctx context.Context, renterID RenterID) error
	CreateRenter(ctx context.Context, renter Renter) error
	GetRenterByEmail(ctx context.Context, email string) (Renter, error)
}

// BookingStore persists bookings. Overlap queries consider BOOKED bookings only
// and use the half-open window test.
type BookingStore interface {
	GetBooking(ctx context.Context, bookingID BookingID) (Booking, error)
	ListBookingsByRenter(ctx context.Context, renterID RenterID) ([]Booking, error)
	ListBookingsBySeller(ctx context.Context, sellerID RenterID) ([]Booking, error)
	ListBookings(ctx context.Context) ([]Booking, error)
	FindOverlappingForUnit(ctx context.Context, unitID UnitID, window Window) ([]Booking, error)
	FindOverlappingForRenter(ctx context.Context, renterID RenterID, window Window) ([]Booking, error)
	BookedUnitIDs(ctx context.Context, window Window) ([]UnitID, error)
	CountActiveForUnit(ctx context.Context, unitID UnitID) (int64, error)
	InsertBooking(ctx context.Context, booking Booking) error
	// UpdateBooking writes booking only while the stored status still equals from.
	UpdateBooking(ctx context.Context, booking Booking, from BookingStatus) error
}

// Store is the persistence contract used by the rental services.
type Store interface {
	UnitStore
	ModelStore
	RenterStore
	BookingStore
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
}
