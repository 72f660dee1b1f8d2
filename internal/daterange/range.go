package daterange

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrStartAfterEnd = errors.New("start date is after end date")
	ErrEndInFuture   = errors.New("end date is in the future")
	ErrInvalidDate   = errors.New("invalid date")
	ErrRangeTooLong  = errors.New("date range too long")
)

// Range is an inclusive calendar window with Start <= End
type Range struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// Options control which ranges Commit accepts
type Options struct {
	// AllowFutureEnd permits an end date after today (forecast queries).
	AllowFutureEnd bool
	// MaxDays caps DaysBetween of an accepted range. Zero means no cap.
	MaxDays int
}

// HistoryOptions accept past ranges up to MaxHistoryDays long
func HistoryOptions() Options {
	return Options{MaxDays: MaxHistoryDays}
}

// ForecastOptions accept future ranges up to MaxForecastDays long
func ForecastOptions() Options {
	return Options{AllowFutureEnd: true, MaxDays: MaxForecastDays}
}

// Commit validates a candidate range against prior. On rejection prior is
// returned unchanged together with the reason.
func Commit(prior Range, start, end civil.Date, opts Options, today civil.Date) (Range, error) {
	if start.After(end) {
		return prior, fmt.Errorf("%w: %s > %s", ErrStartAfterEnd, start, end)
	}
	if !opts.AllowFutureEnd && end.After(today) {
		return prior, fmt.Errorf("%w: %s > %s", ErrEndInFuture, end, today)
	}
	if opts.MaxDays > 0 && end.DaysSince(start) > opts.MaxDays {
		return prior, fmt.Errorf("%w: %d days, at most %d", ErrRangeTooLong, end.DaysSince(start), opts.MaxDays)
	}
	return Range{Start: start, End: end}, nil
}

// DaysBetween returns the whole days from Start to End, never less than one
// so a single-day range still yields a usable query window.
func DaysBetween(r Range) int {
	days := r.End.DaysSince(r.Start)
	if days < 1 {
		return 1
	}
	return days
}

// String renders the range as "start..end"
func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Default windows per screen
const (
	DashboardWindowDays  = 30
	HistoricalWindowDays = 90
	ForecastWindowDays   = 7
)

// Longest accepted windows
const (
	MaxHistoryDays  = 3660
	MaxForecastDays = 365
)

// LastDays returns the window of n days ending today
func LastDays(today civil.Date, n int) Range {
	return Range{Start: today.AddDays(-n), End: today}
}

// NextDays returns the window of n days starting today
func NextDays(today civil.Date, n int) Range {
	return Range{Start: today, End: today.AddDays(n)}
}

// Today returns the current local calendar date
func Today() civil.Date {
	return civil.DateOf(time.Now())
}
