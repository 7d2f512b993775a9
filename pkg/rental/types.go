package rental

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// AmountCents is an integer currency in cents.
type AmountCents int64

// RenterID identifies an account that books units.
type RenterID struct {
	value string
}

// UnitID identifies a physical rentable unit.
type UnitID struct {
	value string
}

// ModelID identifies a class of units sharing rates.
type ModelID struct {
	value string
}

// BookingID identifies a booking.
type BookingID struct {
	value string
}

// MetadataJSON stores arbitrary request metadata.
type MetadataJSON struct {
	value string
}

// Granularity is the billing unit of a booking.
type Granularity string

const (
	GranularityHourly Granularity = "HOURLY"
	GranularityDaily  Granularity = "DAILY"
)

// BookingStatus defines the booking lifecycle.
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"

	bookingStatusReturnedAlias = "RETURNED"
)

// TimeBasis records whether a booking was requested as instants or calendar dates.
type TimeBasis string

const (
	BasisInstant  TimeBasis = "instant"
	BasisCalendar TimeBasis = "calendar"
)

// Account roles carried by identities.
const (
	RoleRenter = "renter"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Rates holds per-period prices for a model.
type Rates struct {
	Hourly AmountCents
	Daily  AmountCents
}

// Model is a class of units sharing rate and descriptive attributes.
type Model struct {
	ID       ModelID
	Name     string
	Category string
	Rates    Rates
	SellerID RenterID
}

// Unit is one physical, individually identifiable rentable asset.
type Unit struct {
	ID          UnitID
	ModelID     ModelID
	NumberPlate string
	Available   bool
}

// Booking is a reservation of one unit for one window by one renter.
// Rates are the effective rates captured when the booking was created.
type Booking struct {
	ID           BookingID
	RenterID     RenterID
	UnitID       UnitID
	Start        time.Time
	End          time.Time
	Granularity  Granularity
	Basis        TimeBasis
	Status       BookingStatus
	Rates        Rates
	TotalAmount  AmountCents
	Fine         AmountCents
	ActualReturn *time.Time
	Metadata     MetadataJSON
	CreatedAt    time.Time
}

// Renter is a registered account.
type Renter struct {
	ID             RenterID
	Email          string
	DisplayName    string
	PasswordDigest string
	Role           string
}

// Identity is the authenticated caller passed explicitly into every façade call.
type Identity struct {
	RenterID RenterID
	Roles    []string
}

// NewAmountCents validates a non-negative amount.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cents value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// NewRenterID validates and normalizes a renter id.
func NewRenterID(raw string) (RenterID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RenterID{}, fmt.Errorf("%w: empty value", ErrInvalidRenterID)
	}
	return RenterID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id RenterID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id RenterID) IsZero() bool {
	return id.value == ""
}

// NewUnitID validates and normalizes a unit id.
func NewUnitID(raw string) (UnitID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UnitID{}, fmt.Errorf("%w: empty value", ErrInvalidUnitID)
	}
	return UnitID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UnitID) String() string {
	return id.value
}

// NewModelID validates and normalizes a model id.
func NewModelID(raw string) (ModelID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ModelID{}, fmt.Errorf("%w: empty value", ErrInvalidModelID)
	}
	return ModelID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ModelID) String() string {
	return id.value
}

// NewBookingID validates and normalizes a booking id.
func NewBookingID(raw string) (BookingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BookingID{}, fmt.Errorf("%w: empty value", ErrInvalidBookingID)
	}
	return BookingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BookingID) String() string {
	return id.value
}

// NewMetadataJSON validates metadata string (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob, "{}" when unset.
func (metadata MetadataJSON) String() string {
	if metadata.value == "" {
		return "{}"
	}
	return metadata.value
}

// ParseGranularity matches HOURLY or DAILY regardless of case.
func ParseGranularity(raw string) (Granularity, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(GranularityHourly):
		return GranularityHourly, nil
	case string(GranularityDaily):
		return GranularityDaily, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, raw)
	}
}

// String returns the stored granularity tag.
func (granularity Granularity) String() string {
	return string(granularity)
}

// ParseBookingStatus accepts stored status values; RETURNED is read as COMPLETED.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(BookingStatusBooked):
		return BookingStatusBooked, nil
	case string(BookingStatusCompleted), bookingStatusReturnedAlias:
		return BookingStatusCompleted, nil
	case string(BookingStatusCancelled):
		return BookingStatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidState, raw)
	}
}

// String returns the stored status value.
func (status BookingStatus) String() string {
	return string(status)
}

// IsTerminal reports whether no further transitions are allowed.
func (status BookingStatus) IsTerminal() bool {
	return status == BookingStatusCompleted || status == BookingStatusCancelled
}

// ParseTimeBasis parses a stored time basis, defaulting to instant.
func ParseTimeBasis(raw string) TimeBasis {
	if strings.EqualFold(strings.TrimSpace(raw), string(BasisCalendar)) {
		return BasisCalendar
	}
	return BasisInstant
}

// Window returns the booked interval.
func (booking Booking) Window() Window {
	return Window{Start: booking.Start, End: booking.End}
}

// HasRole reports whether the identity carries role.
func (identity Identity) HasRole(role string) bool {
	return slices.Contains(identity.Roles, role)
}
