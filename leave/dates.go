package leave

import "time"

// =============================================================================
// DATE HELPERS - Everything here works on UTC-midnight dates
// =============================================================================

// Date truncates a time to a UTC calendar date. All request and accrual
// dates pass through here so comparisons never depend on wall-clock time
// or location.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func StartOfYear(year int) time.Time { return NewDate(year, time.January, 1) }
func EndOfYear(year int) time.Time   { return NewDate(year, time.December, 31) }

// DaysBetween returns the whole-day distance from one date to another.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// InclusiveDays counts calendar days in [start, end], both ends counted.
func InclusiveDays(start, end time.Time) int {
	return DaysBetween(start, end) + 1
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	return InclusiveDays(StartOfYear(year), EndOfYear(year))
}

// MonthsSince returns the number of whole calendar months elapsed from
// one date to another. Used for probation gating.
func MonthsSince(from, to time.Time) int {
	from, to = Date(from), Date(to)
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
