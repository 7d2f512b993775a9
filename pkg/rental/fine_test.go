package rental

import (
	"errors"
	"testing"
)

func TestFine(test *testing.T) {
	test.Parallel()
	expectedEnd := at(40)
	testCases := []struct {
		name         string
		granularity  Granularity
		delayMinutes int
		hourlyRate   AmountCents
		expected     AmountCents
	}{
		{name: "early_return", granularity: GranularityHourly, delayMinutes: -15, hourlyRate: 100, expected: 0},
		{name: "on_time", granularity: GranularityHourly, delayMinutes: 0, hourlyRate: 100, expected: 0},
		{name: "hourly_within_grace", granularity: GranularityHourly, delayMinutes: 25, hourlyRate: 100, expected: 0},
		{name: "hourly_grace_boundary", granularity: GranularityHourly, delayMinutes: 30, hourlyRate: 100, expected: 0},
		{name: "hourly_one_block", granularity: GranularityHourly, delayMinutes: 31, hourlyRate: 100, expected: 100},
		{name: "hourly_seventy_minutes", granularity: GranularityHourly, delayMinutes: 70, hourlyRate: 100, expected: 200},
		{name: "daily_within_grace", granularity: GranularityDaily, delayMinutes: 120, hourlyRate: 100, expected: 0},
		{name: "daily_one_block", granularity: GranularityDaily, delayMinutes: 121, hourlyRate: 100, expected: 100},
		{name: "daily_bills_hourly_rate", granularity: GranularityDaily, delayMinutes: 300, hourlyRate: 100, expected: 300},
		{name: "daily_unset_hourly_rate", granularity: GranularityDaily, delayMinutes: 300, hourlyRate: 0, expected: 0},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			fine, err := Fine(testCase.granularity, expectedEnd, at(40+testCase.delayMinutes), testCase.hourlyRate)
			if err != nil {
				test.Fatalf("fine: %v", err)
			}
			if fine != testCase.expected {
				test.Fatalf(errorMismatchMessage, testCase.expected, fine)
			}
		})
	}
}

func TestFineRejectsUnknownGranularity(test *testing.T) {
	test.Parallel()
	if _, err := Fine(Granularity("MONTHLY"), at(0), at(10), 100); !errors.Is(err, ErrInvalidGranularity) {
		test.Fatalf(errorMismatchMessage, ErrInvalidGranularity, err)
	}
}

func TestFineNeverNegativeBeforeExpectedEnd(test *testing.T) {
	test.Parallel()
	for _, granularity := range []Granularity{GranularityHourly, GranularityDaily} {
		for minutes := -600; minutes <= 0; minutes += 13 {
			fine, err := Fine(granularity, at(0), at(minutes), 100)
			if err != nil {
				test.Fatalf("fine: %v", err)
			}
			if fine != 0 {
				test.Fatalf("expected zero fine for %s at %d, got %d", granularity, minutes, fine)
			}
		}
	}
}
