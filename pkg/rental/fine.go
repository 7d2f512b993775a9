package rental

import (
	"fmt"
	"time"
)

const (
	hourlyGraceMinutes     = 30
	hourlyFineBlockMinutes = 30
	dailyGraceMinutes      = 120
	dailyFineBlockMinutes  = 60
)

// Fine computes the late-return charge. Both granularities bill blocks at the hourly rate.
func Fine(granularity Granularity, expectedEnd time.Time, actualReturn time.Time, hourlyRate AmountCents) (AmountCents, error) {
	var graceMinutes, blockMinutes int64
	switch granularity {
	case GranularityHourly:
		graceMinutes, blockMinutes = hourlyGraceMinutes, hourlyFineBlockMinutes
	case GranularityDaily:
		graceMinutes, blockMinutes = dailyGraceMinutes, dailyFineBlockMinutes
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidGranularity, granularity)
	}
	delayMinutes := int64(actualReturn.Sub(expectedEnd) / time.Minute)
	if delayMinutes <= graceMinutes || hourlyRate <= 0 {
		return 0, nil
	}
	return AmountCents(ceilDiv(delayMinutes-graceMinutes, blockMinutes)) * hourlyRate, nil
}
