package session

import "time"

// Session is the trading session a moment falls into, judged on New York
// wall-clock time.
type Session string

const (
	WeekendHoliday Session = "weekend_holiday"
	DeadZone       Session = "dead_zone"
	Asia           Session = "asia"
	London         Session = "london"
	US             Session = "us"
)

// Ordered lists the sessions in the order a trading day unfolds.
var Ordered = []Session{Asia, London, US, DeadZone, WeekendHoliday}

const (
	daysPerWeek          = 7
	thirdMondayOffset    = 2
	fourthThursdayOffset = 3
	sundayHolidayShift   = 1
)

var newYork = loadNewYork()

func loadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Of classifies t. Sunday during London hours counts as London since
// futures reopen then; the rest of the weekend and US market holidays are
// WeekendHoliday.
func Of(t time.Time) Session {
	et := t.In(newYork)

	if et.Weekday() == time.Sunday && isLondon(et) {
		return London
	}
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday || IsHoliday(et) {
		return WeekendHoliday
	}

	switch {
	case isDeadZone(et):
		return DeadZone
	case isAsia(et):
		return Asia
	case isLondon(et):
		return London
	default:
		return US
	}
}

func isDeadZone(t time.Time) bool {
	return t.Hour() >= 17 && t.Hour() < 20
}

func isAsia(t time.Time) bool {
	return t.Hour() >= 20 || t.Hour() < 3
}

func isLondon(t time.Time) bool {
	return t.Hour() >= 3 && t.Hour() < 9
}

// IsHoliday reports whether the calendar date of t is a US market holiday.
func IsHoliday(t time.Time) bool {
	year := t.Year()

	holidays := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.January, time.Monday, thirdMondayOffset),
		nthWeekday(year, time.February, time.Monday, thirdMondayOffset),
		lastMonday(year, time.May),
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.September, time.Monday, 0),
		nthWeekday(year, time.November, time.Thursday, fourthThursdayOffset),
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)),
	}

	day := t.Format("2006-01-02")
	for _, h := range holidays {
		if h.Format("2006-01-02") == day {
			return true
		}
	}
	return false
}

// observed moves a Sunday holiday to Monday.
func observed(d time.Time) time.Time {
	if d.Weekday() == time.Sunday {
		return d.AddDate(0, 0, sundayHolidayShift)
	}
	return d
}

// nthWeekday returns the weekday of month after skipping offset weeks
// (offset 0 is the first occurrence).
func nthWeekday(year int, month time.Month, weekday time.Weekday, offset int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	shift := int(weekday-first.Weekday()+daysPerWeek) % daysPerWeek
	return first.AddDate(0, 0, shift+offset*daysPerWeek)
}

func lastMonday(year int, month time.Month) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
