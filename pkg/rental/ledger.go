package rental

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LedgerOption configures a Ledger instance.
type LedgerOption func(*Ledger)

// Ledger creates, conflict-checks, and settles bookings over a Store.
type Ledger struct {
	store     Store
	clock     func() time.Time
	pricing   PricingEngine
	policies  []ConflictPolicy
	locker    UnitLocker
	publisher EventPublisher
	logger    OperationLogger
	newID     func() string
}

// WithLedgerOperationLogger wires a logger that receives callbacks for every ledger mutation.
func WithLedgerOperationLogger(logger OperationLogger) LedgerOption {
	return func(ledger *Ledger) {
		ledger.logger = logger
	}
}

// WithEventPublisher publishes lifecycle events after each committed mutation.
func WithEventPublisher(publisher EventPublisher) LedgerOption {
	return func(ledger *Ledger) {
		ledger.publisher = publisher
	}
}

// WithConflictPolicies replaces the conflict policies. The unit policy is always kept.
func WithConflictPolicies(policies ...ConflictPolicy) LedgerOption {
	return func(ledger *Ledger) {
		ledger.policies = policies
	}
}

// WithLocker replaces the in-process locker, e.g. with a distributed one.
func WithLocker(locker UnitLocker) LedgerOption {
	return func(ledger *Ledger) {
		if locker != nil {
			ledger.locker = locker
		}
	}
}

// WithIDGenerator overrides booking id generation.
func WithIDGenerator(generator func() string) LedgerOption {
	return func(ledger *Ledger) {
		if generator != nil {
			ledger.newID = generator
		}
	}
}

// NewLedger wires a Ledger.
func NewLedger(store Store, clock func() time.Time, pricing PricingEngine, options ...LedgerOption) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if clock == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	ledger := &Ledger{
		store:    store,
		clock:    clock,
		pricing:  pricing,
		policies: []ConflictPolicy{UnitConflictPolicy{}},
		locker:   NewLocalLocker(),
		newID:    uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(ledger)
		}
	}
	ledger.policies = ensureUnitPolicy(ledger.policies)
	return ledger, nil
}

// Pricing returns the engine used to price bookings.
func (ledger *Ledger) Pricing() PricingEngine {
	return ledger.pricing
}

// Policies lists the names of the active conflict policies.
func (ledger *Ledger) Policies() []string {
	names := make([]string, 0, len(ledger.policies))
	for _, policy := range ledger.policies {
		names = append(names, policy.Name())
	}
	return names
}

type bookingDraft struct {
	renterID    RenterID
	unitID      UnitID
	window      Window
	granularity Granularity
	basis       TimeBasis
	metadata    MetadataJSON
	price       func(rates Rates) (AmountCents, error)
}

// Create books unitID for renterID over window, billed at granularity.
func (ledger *Ledger) Create(ctx context.Context, renterID RenterID, unitID UnitID, window Window, granularity Granularity, metadata MetadataJSON) (Booking, error) {
	if !window.Start.Before(window.End) {
		return Booking{}, fmt.Errorf("%w: start must be before end", ErrInvalidWindow)
	}
	if _, err := ParseGranularity(string(granularity)); err != nil {
		return Booking{}, err
	}
	return ledger.create(ctx, bookingDraft{
		renterID:    renterID,
		unitID:      unitID,
		window:      window,
		granularity: granularity,
		basis:       BasisInstant,
		metadata:    metadata,
		price: func(rates Rates) (AmountCents, error) {
			return ledger.pricing.Price(window, granularity, rates)
		},
	})
}

// CreateForDates books unitID for whole calendar days. The booking occupies
// [StartDate, EndDate+1d) and is billed DAILY by day count.
func (ledger *Ledger) CreateForDates(ctx context.Context, renterID RenterID, unitID UnitID, dates DateRange, metadata MetadataJSON) (Booking, error) {
	if dates.EndDate.Before(dates.StartDate) {
		return Booking{}, fmt.Errorf("%w: end date must not precede start date", ErrInvalidWindow)
	}
	return ledger.create(ctx, bookingDraft{
		renterID:    renterID,
		unitID:      unitID,
		window:      dates.Window(),
		granularity: GranularityDaily,
		basis:       BasisCalendar,
		metadata:    metadata,
		price: func(rates Rates) (AmountCents, error) {
			return ledger.pricing.PriceDates(dates, rates)
		},
	})
}

func (ledger *Ledger) create(ctx context.Context, draft bookingDraft) (Booking, error) {
	candidate := ConflictCandidate{RenterID: draft.renterID, UnitID: draft.unitID, Window: draft.window}
	var booking Booking
	operationError := ledger.withLocks(ctx, ledger.lockKeys(candidate), func() error {
		return ledger.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			unit, err := transactionStore.LockUnit(ctx, draft.unitID)
			if err != nil {
				return err
			}
			model, err := transactionStore.GetModel(ctx, unit.ModelID)
			if err != nil {
				return err
			}
			for _, policy := range ledger.policies {
				if err := policy.LockRows(ctx, transactionStore, candidate); err != nil {
					return err
				}
				conflicts, err := policy.Conflicts(ctx, transactionStore, candidate)
				if err != nil {
					return err
				}
				if len(conflicts) > 0 {
					return fmt.Errorf("%w: %s policy overlaps booking %s", ErrSchedulingConflict, policy.Name(), conflicts[0].ID.String())
				}
			}
			rates := ledger.pricing.EffectiveRates(model.Rates)
			total, err := draft.price(rates)
			if err != nil {
				return err
			}
			bookingID, err := NewBookingID(ledger.newID())
			if err != nil {
				return err
			}
			booking = Booking{
				ID:          bookingID,
				RenterID:    draft.renterID,
				UnitID:      unit.ID,
				Start:       draft.window.Start,
				End:         draft.window.End,
				Granularity: draft.granularity,
				Basis:       draft.basis,
				Status:      BookingStatusBooked,
				Rates:       rates,
				TotalAmount: total,
				Metadata:    draft.metadata,
				CreatedAt:   ledger.clock().UTC(),
			}
			if err := transactionStore.SetUnitAvailability(ctx, unit.ID, false); err != nil {
				return err
			}
			return transactionStore.InsertBooking(ctx, booking)
		})
	})
	ledger.logOperation(ctx, OperationLog{
		Operation: operationCreate,
		RenterID:  draft.renterID,
		UnitID:    draft.unitID,
		BookingID: booking.ID,
		Amount:    booking.TotalAmount,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	ledger.publish(ctx, EventBookingCreated, booking)
	return booking, nil
}

// Settle records the return of a BOOKED booking at actualReturn, adding any late fine.
func (ledger *Ledger) Settle(ctx context.Context, bookingID BookingID, actualReturn time.Time) (Booking, error) {
	settled, operationError := ledger.closeBooking(ctx, bookingID, nil, func(booking Booking) (Booking, error) {
		fine, err := Fine(booking.Granularity, booking.End, actualReturn, booking.Rates.Hourly)
		if err != nil {
			return Booking{}, err
		}
		returnedAt := actualReturn.UTC()
		booking.Fine = fine
		booking.TotalAmount += fine
		booking.ActualReturn = &returnedAt
		booking.Status = BookingStatusCompleted
		return booking, nil
	})
	ledger.logOperation(ctx, OperationLog{
		Operation: operationSettle,
		RenterID:  settled.RenterID,
		UnitID:    settled.UnitID,
		BookingID: bookingID,
		Amount:    settled.Fine,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	ledger.publish(ctx, EventBookingSettled, settled)
	return settled, nil
}

// Cancel voids a BOOKED booking. Only the booking's renter may cancel it.
func (ledger *Ledger) Cancel(ctx context.Context, bookingID BookingID, requesterID RenterID) (Booking, error) {
	authorize := func(booking Booking) error {
		if booking.RenterID != requesterID {
			return fmt.Errorf("%w: booking belongs to another renter", ErrUnauthorized)
		}
		return nil
	}
	cancelled, operationError := ledger.closeBooking(ctx, bookingID, authorize, func(booking Booking) (Booking, error) {
		booking.Status = BookingStatusCancelled
		return booking, nil
	})
	ledger.logOperation(ctx, OperationLog{
		Operation: operationCancel,
		RenterID:  requesterID,
		UnitID:    cancelled.UnitID,
		BookingID: bookingID,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	ledger.publish(ctx, EventBookingCancelled, cancelled)
	return cancelled, nil
}

// closeBooking moves a BOOKED booking to a terminal state under its unit lock
// and recomputes the unit availability in the same transaction. guard runs
// before the status check.
func (ledger *Ledger) closeBooking(ctx context.Context, bookingID BookingID, guard func(Booking) error, transition func(Booking) (Booking, error)) (Booking, error) {
	current, err := ledger.store.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	var closed Booking
	err = ledger.withLocks(ctx, []string{unitLockKey(current.UnitID)}, func() error {
		return ledger.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if _, err := transactionStore.LockUnit(ctx, current.UnitID); err != nil {
				return err
			}
			booking, err := transactionStore.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if guard != nil {
				if err := guard(booking); err != nil {
					return err
				}
			}
			if booking.Status != BookingStatusBooked {
				return fmt.Errorf("%w: booking is %s", ErrInvalidState, strings.ToLower(booking.Status.String()))
			}
			next, err := transition(booking)
			if err != nil {
				return err
			}
			if err := transactionStore.UpdateBooking(ctx, next, BookingStatusBooked); err != nil {
				return err
			}
			if err := refreshAvailability(ctx, transactionStore, next.UnitID); err != nil {
				return err
			}
			closed = next
			return nil
		})
	})
	if err != nil {
		return current, err
	}
	return closed, nil
}

// Reconcile rederives every unit's availability flag from its active bookings
// and returns the ids of units whose flag was corrected.
func (ledger *Ledger) Reconcile(ctx context.Context) ([]UnitID, error) {
	units, err := ledger.store.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	corrected := make([]UnitID, 0)
	for _, unit := range units {
		unitID := unit.ID
		changed := false
		err := ledger.withLocks(ctx, []string{unitLockKey(unitID)}, func() error {
			return ledger.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
				locked, err := transactionStore.LockUnit(ctx, unitID)
				if err != nil {
					return err
				}
				active, err := transactionStore.CountActiveForUnit(ctx, unitID)
				if err != nil {
					return err
				}
				expected := active == 0
				if locked.Available == expected {
					return nil
				}
				changed = true
				return transactionStore.SetUnitAvailability(ctx, unitID, expected)
			})
		})
		if err != nil {
			ledger.logOperation(ctx, OperationLog{Operation: operationReconcile, UnitID: unitID, Error: err})
			return corrected, err
		}
		if changed {
			ledger.logOperation(ctx, OperationLog{Operation: operationReconcile, UnitID: unitID})
			corrected = append(corrected, unitID)
		}
	}
	return corrected, nil
}

// Booking returns a booking by id.
func (ledger *Ledger) Booking(ctx context.Context, bookingID BookingID) (Booking, error) {
	return ledger.store.GetBooking(ctx, bookingID)
}

// BookingsForRenter lists a renter's bookings, newest first.
func (ledger *Ledger) BookingsForRenter(ctx context.Context, renterID RenterID) ([]Booking, error) {
	bookings, err := ledger.store.ListBookingsByRenter(ctx, renterID)
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(bookings), nil
}

// BookingsForSeller lists bookings on units of models owned by sellerID, newest first.
func (ledger *Ledger) BookingsForSeller(ctx context.Context, sellerID RenterID) ([]Booking, error) {
	bookings, err := ledger.store.ListBookingsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(bookings), nil
}

// AllBookings lists every booking, newest first.
func (ledger *Ledger) AllBookings(ctx context.Context) ([]Booking, error) {
	bookings, err := ledger.store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(bookings), nil
}

// lockKeys returns the policy lock keys in a stable order so renter keys precede unit keys.
func (ledger *Ledger) lockKeys(candidate ConflictCandidate) []string {
	keys := make([]string, 0, len(ledger.policies))
	for _, policy := range ledger.policies {
		key := policy.LockKey(candidate)
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func (ledger *Ledger) withLocks(ctx context.Context, keys []string, fn func() error) error {
	for _, key := range keys {
		unlock, err := ledger.locker.Lock(ctx, key)
		if err != nil {
			return err
		}
		defer unlock()
	}
	return fn()
}

func (ledger *Ledger) publish(ctx context.Context, eventType EventType, booking Booking) {
	if ledger.publisher == nil {
		return
	}
	event := BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Booking:    booking,
		OccurredAt: ledger.clock().UTC(),
	}
	if err := ledger.publisher.Publish(ctx, event); err != nil {
		ledger.logOperation(ctx, OperationLog{
			Operation: operationPublish,
			RenterID:  booking.RenterID,
			UnitID:    booking.UnitID,
			BookingID: booking.ID,
			Error:     err,
		})
	}
}

func (ledger *Ledger) logOperation(ctx context.Context, entry OperationLog) {
	emitOperation(ctx, ledger.logger, entry)
}

func refreshAvailability(ctx context.Context, store Store, unitID UnitID) error {
	active, err := store.CountActiveForUnit(ctx, unitID)
	if err != nil {
		return err
	}
	return store.SetUnitAvailability(ctx, unitID, active == 0)
}

func sortNewestFirst(bookings []Booking) []Booking {
	slices.SortStableFunc(bookings, func(left, right Booking) int {
		if byCreated := right.CreatedAt.Compare(left.CreatedAt); byCreated != 0 {
			return byCreated
		}
		return right.Start.Compare(left.Start)
	})
	return bookings
}
