package util

import (
	"errors"
	"time"
)

const Layout = "2006-01-02"

var NYSE = []string{"2024-01-01", "2024-01-15", "2024-02-19", "2024-03-29", "2024-05-27", "2024-06-19", "2024-07-04", "2024-09-02", "2024-11-28", "2024-12-25", "2025-01-01", "2025-01-20", "2025-02-17", "2025-04-18", "2025-05-26", "2025-06-19", "2025-07-04", "2025-09-01", "2025-11-27", "2025-12-25"}

// Convert holidays from string to time.Time format
func Hols(s []string) ([]time.Time, error) {
	h := make([]time.Time, len(s))
	for i, v := range s {
		d, err := time.Parse(Layout, v)
		if err != nil {
			return nil, err
		}
		h[i] = d
	}
	return h, nil
}

func IsHol(d time.Time, hols []time.Time) bool {
	for _, v := range hols {
		if d.Equal(v) {
			return true
		}
	}
	return false
}

func IsWeekday(d time.Time) bool {
	return d.Weekday() > 0 && d.Weekday() < 6
}

// AdjustFollowing rolls d forward to the next business day.
func AdjustFollowing(d time.Time, hols []time.Time) time.Time {
	for IsHol(d, hols) || !IsWeekday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Return a list of business days from (and including) a start date to (and including) an end date according to a holiday calendar
func ListBusinessDates(start time.Time, end time.Time, hols []time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, errors.New("end date must be later than start date")
	}
	out := []time.Time{start}
	for {
		start = AdjustFollowing(start.AddDate(0, 0, 1), hols)
		if start.After(end) {
			return out, nil
		}
		out = append(out, start)
	}
}

// StepDates returns steps+1 business dates starting at start, one per
// simulation step, used to label forecast paths.
func StepDates(start time.Time, steps int, hols []time.Time) []time.Time {
	out := make([]time.Time, steps+1)
	d := AdjustFollowing(start, hols)
	for i := range out {
		out[i] = d
		d = AdjustFollowing(d.AddDate(0, 0, 1), hols)
	}
	return out
}
