package rental

import (
	"fmt"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 1440

	minimumBillableWindow = time.Minute
)

// PricingEngine computes booking totals from model rates.
// An unset hourly rate falls back to the engine default.
type PricingEngine struct {
	defaultHourlyRate AmountCents
}

// NewPricingEngine returns an engine with the given fallback hourly rate.
func NewPricingEngine(defaultHourlyRate AmountCents) PricingEngine {
	return PricingEngine{defaultHourlyRate: defaultHourlyRate}
}

// EffectiveRates applies the hourly fallback.
func (engine PricingEngine) EffectiveRates(rates Rates) Rates {
	if rates.Hourly == 0 {
		rates.Hourly = engine.defaultHourlyRate
	}
	return rates
}

// Price bills whole minutes of the window, rounding up to whole hours or days.
// Windows shorter than one minute are rejected.
func (engine PricingEngine) Price(window Window, granularity Granularity, rates Rates) (AmountCents, error) {
	if window.Duration() < minimumBillableWindow {
		return 0, fmt.Errorf("%w: window must last at least one minute", ErrInvalidWindow)
	}
	effective := engine.EffectiveRates(rates)
	minutes := int64(window.Duration() / time.Minute)
	switch granularity {
	case GranularityHourly:
		if effective.Hourly <= 0 {
			return 0, fmt.Errorf("%w: hourly rate is not set", ErrRateUnavailable)
		}
		return AmountCents(billablePeriods(minutes, minutesPerHour)) * effective.Hourly, nil
	case GranularityDaily:
		if effective.Daily <= 0 {
			return 0, fmt.Errorf("%w: daily rate is not set", ErrRateUnavailable)
		}
		return AmountCents(billablePeriods(minutes, minutesPerDay)) * effective.Daily, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidGranularity, granularity)
	}
}

// PriceDates bills whole days between the dates at the daily rate.
func (engine PricingEngine) PriceDates(dates DateRange, rates Rates) (AmountCents, error) {
	if rates.Daily <= 0 {
		return 0, fmt.Errorf("%w: daily rate is not set", ErrRateUnavailable)
	}
	return AmountCents(dates.Days()) * rates.Daily, nil
}

// billablePeriods is ceil(minutes/periodMinutes) with a floor of one period for minutes >= 1.
func billablePeriods(minutes int64, periodMinutes int64) int64 {
	periods := ceilDiv(minutes, periodMinutes)
	if periods < 1 {
		return 1
	}
	return periods
}

func ceilDiv(numerator int64, denominator int64) int64 {
	if numerator <= 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}
