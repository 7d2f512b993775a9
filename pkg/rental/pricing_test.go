package rental

import (
	"errors"
	"testing"
	"time"
)

func TestPriceRoundsUpToWholePeriods(test *testing.T) {
	test.Parallel()
	engine := NewPricingEngine(0)
	rates := Rates{Hourly: 100, Daily: 500}
	testCases := []struct {
		name        string
		minutes     int
		granularity Granularity
		expected    AmountCents
	}{
		{name: "hourly_forty_minutes", minutes: 40, granularity: GranularityHourly, expected: 100},
		{name: "hourly_exact_hour", minutes: 60, granularity: GranularityHourly, expected: 100},
		{name: "hourly_sixty_one", minutes: 61, granularity: GranularityHourly, expected: 200},
		{name: "hourly_one_minute", minutes: 1, granularity: GranularityHourly, expected: 100},
		{name: "daily_one_minute", minutes: 1, granularity: GranularityDaily, expected: 500},
		{name: "daily_exact_day", minutes: 1440, granularity: GranularityDaily, expected: 500},
		{name: "daily_day_and_minute", minutes: 1441, granularity: GranularityDaily, expected: 1000},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			price, err := engine.Price(mustWindow(test, baseInstant, at(testCase.minutes)), testCase.granularity, rates)
			if err != nil {
				test.Fatalf("price: %v", err)
			}
			if price != testCase.expected {
				test.Fatalf(errorMismatchMessage, testCase.expected, price)
			}
		})
	}
}

func TestPriceRejectsSubMinuteWindows(test *testing.T) {
	test.Parallel()
	engine := NewPricingEngine(0)
	rates := Rates{Hourly: 100, Daily: 500}
	for _, duration := range []time.Duration{time.Millisecond, 30 * time.Second, time.Minute - time.Nanosecond} {
		for _, granularity := range []Granularity{GranularityHourly, GranularityDaily} {
			price, err := engine.Price(mustWindow(test, baseInstant, baseInstant.Add(duration)), granularity, rates)
			if !errors.Is(err, ErrInvalidWindow) || price != 0 {
				test.Fatalf("%s %s: expected invalid window, got %d %v", duration, granularity, price, err)
			}
		}
	}
}

func TestPriceRejectsUnknownGranularity(test *testing.T) {
	test.Parallel()
	engine := NewPricingEngine(0)
	_, err := engine.Price(mustWindow(test, at(0), at(60)), Granularity("WEEKLY"), Rates{Hourly: 1, Daily: 1})
	if !errors.Is(err, ErrInvalidGranularity) {
		test.Fatalf(errorMismatchMessage, ErrInvalidGranularity, err)
	}
}

func TestPriceHourlyRateFallback(test *testing.T) {
	test.Parallel()
	window := mustWindow(test, at(0), at(90))
	if _, err := NewPricingEngine(0).Price(window, GranularityHourly, Rates{Daily: 500}); !errors.Is(err, ErrRateUnavailable) {
		test.Fatalf(errorMismatchMessage, ErrRateUnavailable, err)
	}
	price, err := NewPricingEngine(250).Price(window, GranularityHourly, Rates{Daily: 500})
	if err != nil {
		test.Fatalf("price: %v", err)
	}
	if price != 500 {
		test.Fatalf(errorMismatchMessage, AmountCents(500), price)
	}
}

func TestPriceIsMonotonicInDuration(test *testing.T) {
	test.Parallel()
	engine := NewPricingEngine(0)
	rates := Rates{Hourly: 70, Daily: 900}
	for _, granularity := range []Granularity{GranularityHourly, GranularityDaily} {
		previous := AmountCents(0)
		for minutes := 1; minutes <= 4*1440; minutes += 7 {
			price, err := engine.Price(mustWindow(test, at(0), at(minutes)), granularity, rates)
			if err != nil {
				test.Fatalf("price: %v", err)
			}
			if price < previous {
				test.Fatalf("%s price decreased at %d minutes: %d < %d", granularity, minutes, price, previous)
			}
			previous = price
		}
	}
}

func TestPriceDates(test *testing.T) {
	test.Parallel()
	engine := NewPricingEngine(0)
	rates := Rates{Daily: 500}
	testCases := []struct {
		name     string
		start    string
		end      string
		expected AmountCents
	}{
		{name: "three_days", start: "2024-01-01", end: "2024-01-04", expected: 1500},
		{name: "same_day_floored", start: "2024-01-01", end: "2024-01-01", expected: 500},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			price, err := engine.PriceDates(mustDates(test, testCase.start, testCase.end), rates)
			if err != nil {
				test.Fatalf("price dates: %v", err)
			}
			if price != testCase.expected {
				test.Fatalf(errorMismatchMessage, testCase.expected, price)
			}
		})
	}
	if _, err := engine.PriceDates(mustDates(test, "2024-01-01", "2024-01-02"), Rates{Hourly: 10}); !errors.Is(err, ErrRateUnavailable) {
		test.Fatalf(errorMismatchMessage, ErrRateUnavailable, err)
	}
}
