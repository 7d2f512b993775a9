package rental

import (
	"errors"
	"testing"
)

func TestIdentifierConstructors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name        string
		construct   func(string) (string, error)
		expectedErr error
	}{
		{name: "renter", construct: func(raw string) (string, error) { id, err := NewRenterID(raw); return id.String(), err }, expectedErr: ErrInvalidRenterID},
		{name: "unit", construct: func(raw string) (string, error) { id, err := NewUnitID(raw); return id.String(), err }, expectedErr: ErrInvalidUnitID},
		{name: "model", construct: func(raw string) (string, error) { id, err := NewModelID(raw); return id.String(), err }, expectedErr: ErrInvalidModelID},
		{name: "booking", construct: func(raw string) (string, error) { id, err := NewBookingID(raw); return id.String(), err }, expectedErr: ErrInvalidBookingID},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			value, err := testCase.construct("  abc  ")
			if err != nil {
				test.Fatalf("construct: %v", err)
			}
			if value != "abc" {
				test.Fatalf(errorMismatchMessage, "abc", value)
			}
			if _, err := testCase.construct("   "); !errors.Is(err, testCase.expectedErr) {
				test.Fatalf(errorMismatchMessage, testCase.expectedErr, err)
			}
		})
	}
}

func TestParseGranularity(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		raw      string
		expected Granularity
		wantErr  bool
	}{
		{raw: "HOURLY", expected: GranularityHourly},
		{raw: "hourly", expected: GranularityHourly},
		{raw: " Daily ", expected: GranularityDaily},
		{raw: "weekly", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.raw, func(test *testing.T) {
			test.Parallel()
			granularity, err := ParseGranularity(testCase.raw)
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidGranularity) {
					test.Fatalf(errorMismatchMessage, ErrInvalidGranularity, err)
				}
				return
			}
			if err != nil || granularity != testCase.expected {
				test.Fatalf(errorMismatchMessage, testCase.expected, granularity)
			}
		})
	}
}

func TestParseBookingStatus(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		raw      string
		expected BookingStatus
	}{
		{raw: "BOOKED", expected: BookingStatusBooked},
		{raw: "COMPLETED", expected: BookingStatusCompleted},
		{raw: "RETURNED", expected: BookingStatusCompleted},
		{raw: "cancelled", expected: BookingStatusCancelled},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.raw, func(test *testing.T) {
			test.Parallel()
			status, err := ParseBookingStatus(testCase.raw)
			if err != nil {
				test.Fatalf("parse: %v", err)
			}
			if status != testCase.expected {
				test.Fatalf(errorMismatchMessage, testCase.expected, status)
			}
		})
	}
	if _, err := ParseBookingStatus("PENDING"); err == nil {
		test.Fatalf("expected error for unknown status")
	}
	if BookingStatusBooked.IsTerminal() || !BookingStatusCompleted.IsTerminal() || !BookingStatusCancelled.IsTerminal() {
		test.Fatalf("unexpected terminal classification")
	}
}

func TestNewMetadataJSON(test *testing.T) {
	test.Parallel()
	metadata, err := NewMetadataJSON("")
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	if metadata.String() != "{}" {
		test.Fatalf(errorMismatchMessage, "{}", metadata.String())
	}
	if _, err := NewMetadataJSON("{oops"); !errors.Is(err, ErrInvalidMetadataJSON) {
		test.Fatalf(errorMismatchMessage, ErrInvalidMetadataJSON, err)
	}
	if (MetadataJSON{}).String() != "{}" {
		test.Fatalf("expected zero metadata to render as {}")
	}
}

func TestNewAmountCents(test *testing.T) {
	test.Parallel()
	if _, err := NewAmountCents(-1); !errors.Is(err, ErrInvalidAmountCents) {
		test.Fatalf(errorMismatchMessage, ErrInvalidAmountCents, err)
	}
	amount, err := NewAmountCents(0)
	if err != nil || amount.Int64() != 0 {
		test.Fatalf("expected zero amount, got %v %v", amount, err)
	}
}

func TestIdentityHasRole(test *testing.T) {
	test.Parallel()
	identity := Identity{Roles: []string{RoleRenter, RoleSeller}}
	if !identity.HasRole(RoleSeller) || identity.HasRole(RoleAdmin) {
		test.Fatalf("unexpected role membership")
	}
}
