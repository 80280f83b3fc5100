package domain

import "time"

type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// MaxSeriesOccurrences bounds a recurring series when neither an occurrence
// count nor an end date practically limits it.
const MaxSeriesOccurrences = 52

// NextOccurrence advances cursor by one unit of the pattern. The arithmetic
// happens in loc so the local wall-clock time survives DST transitions.
// Month-end overflow follows time.AddDate normalization: Jan 31 plus one
// month lands in early March rather than clamping to Feb 28.
func NextOccurrence(cursor time.Time, pattern RecurrencePattern, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := cursor.In(loc)
	switch pattern {
	case RecurrenceDaily:
		local = local.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		local = local.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		local = local.AddDate(0, 1, 0)
	}
	return local.UTC()
}
