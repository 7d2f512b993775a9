package rental

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format of calendar dates.
	DateLayout = "2006-01-02"
	day        = 24 * time.Hour
)

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates start < end and normalizes both instants to UTC.
func NewWindow(start time.Time, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, fmt.Errorf("%w: start must be before end", ErrInvalidWindow)
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps applies the half-open test: a.start < b.end and a.end > b.start.
func (window Window) Overlaps(other Window) bool {
	return window.Start.Before(other.End) && window.End.After(other.Start)
}

// Duration returns the window length.
func (window Window) Duration() time.Duration {
	return window.End.Sub(window.Start)
}

// DateRange is an inclusive range of whole calendar days.
type DateRange struct {
	StartDate time.Time
	EndDate   time.Time
}

// NewDateRange truncates both values to their calendar date and rejects end < start.
func NewDateRange(start time.Time, end time.Time) (DateRange, error) {
	startDate := truncateDate(start)
	endDate := truncateDate(end)
	if endDate.Before(startDate) {
		return DateRange{}, fmt.Errorf("%w: end date must not precede start date", ErrInvalidWindow)
	}
	return DateRange{StartDate: startDate, EndDate: endDate}, nil
}

// ParseDateRange parses two YYYY-MM-DD values.
func ParseDateRange(rawStart string, rawEnd string) (DateRange, error) {
	start, err := time.Parse(DateLayout, strings.TrimSpace(rawStart))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date: %v", ErrInvalidWindow, err)
	}
	end, err := time.Parse(DateLayout, strings.TrimSpace(rawEnd))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date: %v", ErrInvalidWindow, err)
	}
	return NewDateRange(start, end)
}

// Overlaps applies the inclusive day test: other starts inside, ends inside, or spans the range.
func (dates DateRange) Overlaps(other DateRange) bool {
	startsInside := !other.StartDate.Before(dates.StartDate) && !other.StartDate.After(dates.EndDate)
	endsInside := !other.EndDate.Before(dates.StartDate) && !other.EndDate.After(dates.EndDate)
	spans := !other.StartDate.After(dates.StartDate) && !other.EndDate.Before(dates.EndDate)
	return startsInside || endsInside || spans
}

// Days returns the billable day count between the dates, never less than one.
func (dates DateRange) Days() int64 {
	days := int64(dates.EndDate.Sub(dates.StartDate) / day)
	if days <= 0 {
		return 1
	}
	return days
}

// Window maps the range onto the half-open span [StartDate, EndDate+1d).
func (dates DateRange) Window() Window {
	return Window{Start: dates.StartDate, End: dates.EndDate.Add(day)}
}

func truncateDate(value time.Time) time.Time {
	year, month, dayOfMonth := value.Date()
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}
