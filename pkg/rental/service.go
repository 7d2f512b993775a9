package rental

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	operationBook          = "book"
	operationBookDates     = "book_dates"
	operationReturn        = "return"
	operationList          = "list"
	operationAvailability  = "availability"
	operationQuote         = "quote"
	operationSellerListing = "seller_bookings"
	operationAdminListing  = "all_bookings"
)

// BookingRequest asks for a unit over an instant window.
type BookingRequest struct {
	UnitID      string
	Start       time.Time
	End         time.Time
	Granularity string
	Metadata    string
}

// DateBookingRequest asks for a unit over whole calendar days (YYYY-MM-DD).
type DateBookingRequest struct {
	UnitID    string
	StartDate string
	EndDate   string
	Metadata  string
}

// ServiceOption configures a BookingService instance.
type ServiceOption func(*BookingService)

// BookingService orchestrates the availability index, pricing, and the ledger
// for caller-facing requests. Errors outside the domain taxonomy surface as ErrInternal.
type BookingService struct {
	store    Store
	ledger   *Ledger
	index    *AvailabilityIndex
	precheck bool
	logger   OperationLogger
}

// WithOperationLogger wires a logger that receives internal failures hidden from callers.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *BookingService) {
		service.logger = logger
	}
}

// WithAvailabilityPrecheck consults the availability index before creating a booking.
func WithAvailabilityPrecheck(enabled bool) ServiceOption {
	return func(service *BookingService) {
		service.precheck = enabled
	}
}

// NewBookingService wires a BookingService.
func NewBookingService(store Store, ledger *Ledger, index *AvailabilityIndex, options ...ServiceOption) (*BookingService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger dependency is nil", ErrInvalidServiceConfig)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: availability index dependency is nil", ErrInvalidServiceConfig)
	}
	service := &BookingService{store: store, ledger: ledger, index: index}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Book creates an instant-window booking for the caller.
func (service *BookingService) Book(ctx context.Context, identity Identity, request BookingRequest) (Booking, error) {
	booking, err := func() (Booking, error) {
		unitID, err := NewUnitID(request.UnitID)
		if err != nil {
			return Booking{}, err
		}
		granularity, err := ParseGranularity(request.Granularity)
		if err != nil {
			return Booking{}, err
		}
		window, err := NewWindow(request.Start, request.End)
		if err != nil {
			return Booking{}, err
		}
		metadata, err := NewMetadataJSON(request.Metadata)
		if err != nil {
			return Booking{}, err
		}
		if err := service.checkParticipants(ctx, identity, unitID, window); err != nil {
			return Booking{}, err
		}
		return service.ledger.Create(ctx, identity.RenterID, unitID, window, granularity, metadata)
	}()
	return booking, service.present(ctx, operationBook, err)
}

// BookDates creates a calendar-day booking for the caller.
func (service *BookingService) BookDates(ctx context.Context, identity Identity, request DateBookingRequest) (Booking, error) {
	booking, err := func() (Booking, error) {
		unitID, err := NewUnitID(request.UnitID)
		if err != nil {
			return Booking{}, err
		}
		dates, err := ParseDateRange(request.StartDate, request.EndDate)
		if err != nil {
			return Booking{}, err
		}
		metadata, err := NewMetadataJSON(request.Metadata)
		if err != nil {
			return Booking{}, err
		}
		if err := service.checkParticipants(ctx, identity, unitID, dates.Window()); err != nil {
			return Booking{}, err
		}
		return service.ledger.CreateForDates(ctx, identity.RenterID, unitID, dates, metadata)
	}()
	return booking, service.present(ctx, operationBookDates, err)
}

// Return settles a booking at actualReturn. The booking's renter or an admin may return it.
func (service *BookingService) Return(ctx context.Context, identity Identity, rawBookingID string, actualReturn time.Time) (Booking, error) {
	booking, err := func() (Booking, error) {
		bookingID, err := NewBookingID(rawBookingID)
		if err != nil {
			return Booking{}, err
		}
		if identity.RenterID.IsZero() {
			return Booking{}, fmt.Errorf("%w: missing identity", ErrUnauthorized)
		}
		existing, err := service.ledger.Booking(ctx, bookingID)
		if err != nil {
			return Booking{}, err
		}
		if existing.RenterID != identity.RenterID && !identity.HasRole(RoleAdmin) {
			return Booking{}, fmt.Errorf("%w: booking belongs to another renter", ErrUnauthorized)
		}
		return service.ledger.Settle(ctx, bookingID, actualReturn)
	}()
	return booking, service.present(ctx, operationReturn, err)
}

// Cancel voids one of the caller's bookings.
func (service *BookingService) Cancel(ctx context.Context, identity Identity, rawBookingID string) (Booking, error) {
	booking, err := func() (Booking, error) {
		bookingID, err := NewBookingID(rawBookingID)
		if err != nil {
			return Booking{}, err
		}
		if identity.RenterID.IsZero() {
			return Booking{}, fmt.Errorf("%w: missing identity", ErrUnauthorized)
		}
		return service.ledger.Cancel(ctx, bookingID, identity.RenterID)
	}()
	return booking, service.present(ctx, operationCancel, err)
}

// Bookings lists the caller's bookings, newest first.
func (service *BookingService) Bookings(ctx context.Context, identity Identity) ([]Booking, error) {
	if identity.RenterID.IsZero() {
		return nil, fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}
	bookings, err := service.ledger.BookingsForRenter(ctx, identity.RenterID)
	return bookings, service.present(ctx, operationList, err)
}

// SellerBookings lists bookings on the calling seller's models, newest first.
func (service *BookingService) SellerBookings(ctx context.Context, identity Identity) ([]Booking, error) {
	if !identity.HasRole(RoleSeller) {
		return nil, fmt.Errorf("%w: seller role required", ErrUnauthorized)
	}
	bookings, err := service.ledger.BookingsForSeller(ctx, identity.RenterID)
	return bookings, service.present(ctx, operationSellerListing, err)
}

// AllBookings lists every booking for an admin, newest first.
func (service *BookingService) AllBookings(ctx context.Context, identity Identity) ([]Booking, error) {
	if !identity.HasRole(RoleAdmin) {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	bookings, err := service.ledger.AllBookings(ctx)
	return bookings, service.present(ctx, operationAdminListing, err)
}

// Reconcile rederives unit availability for an admin.
func (service *BookingService) Reconcile(ctx context.Context, identity Identity) ([]UnitID, error) {
	if !identity.HasRole(RoleAdmin) {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	corrected, err := service.ledger.Reconcile(ctx)
	return corrected, service.present(ctx, operationReconcile, err)
}

// AvailableUnits returns free units of a model in window.
func (service *BookingService) AvailableUnits(ctx context.Context, rawModelID string, window Window) ([]Unit, error) {
	units, err := func() ([]Unit, error) {
		modelID, err := NewModelID(rawModelID)
		if err != nil {
			return nil, err
		}
		return service.index.AvailableUnits(ctx, modelID, window)
	}()
	return units, service.present(ctx, operationAvailability, err)
}

// AvailableUnitsForDates returns free units of a model over whole days.
func (service *BookingService) AvailableUnitsForDates(ctx context.Context, rawModelID string, dates DateRange) ([]Unit, error) {
	units, err := func() ([]Unit, error) {
		modelID, err := NewModelID(rawModelID)
		if err != nil {
			return nil, err
		}
		return service.index.AvailableUnitsForDates(ctx, modelID, dates)
	}()
	return units, service.present(ctx, operationAvailability, err)
}

// Quote prices a prospective booking without reserving anything.
func (service *BookingService) Quote(ctx context.Context, rawUnitID string, window Window, rawGranularity string) (AmountCents, error) {
	amount, err := func() (AmountCents, error) {
		unitID, err := NewUnitID(rawUnitID)
		if err != nil {
			return 0, err
		}
		granularity, err := ParseGranularity(rawGranularity)
		if err != nil {
			return 0, err
		}
		unit, err := service.store.GetUnit(ctx, unitID)
		if err != nil {
			return 0, err
		}
		model, err := service.store.GetModel(ctx, unit.ModelID)
		if err != nil {
			return 0, err
		}
		return service.ledger.Pricing().Price(window, granularity, model.Rates)
	}()
	return amount, service.present(ctx, operationQuote, err)
}

func (service *BookingService) checkParticipants(ctx context.Context, identity Identity, unitID UnitID, window Window) error {
	if identity.RenterID.IsZero() {
		return fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}
	renterExists, err := service.store.RenterExists(ctx, identity.RenterID)
	if err != nil {
		return err
	}
	if !renterExists {
		return ErrRenterNotFound
	}
	unitExists, err := service.store.UnitExists(ctx, unitID)
	if err != nil {
		return err
	}
	if !unitExists {
		return ErrUnitNotFound
	}
	if !service.precheck {
		return nil
	}
	// Overlaps only: the unit flag also reflects bookings outside window.
	overlapping, err := service.store.FindOverlappingForUnit(ctx, unitID, window)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return fmt.Errorf("%w: unit %s overlaps booking %s", ErrUnitUnavailable, unitID.String(), overlapping[0].ID.String())
	}
	return nil
}

// present strips persistence wrappers from domain errors and hides everything else behind ErrInternal.
func (service *BookingService) present(ctx context.Context, operation string, err error) error {
	if err == nil {
		return nil
	}
	if !IsDomainError(err) {
		emitOperation(ctx, service.logger, OperationLog{Operation: operation, Error: err})
		return fmt.Errorf("%w: %s failed", ErrInternal, operation)
	}
	var operationError OperationError
	for errors.As(err, &operationError) {
		err = operationError.Unwrap()
	}
	return err
}
