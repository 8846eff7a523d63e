package planner

import "time"

// DayAvailability labels one candidate study day with its weekday name.
type DayAvailability struct {
	Date    time.Time
	Weekday string
}

// Availability enumerates every day from start to end inclusive, in date
// order. Returns an empty slice when end is before start.
func Availability(start, end time.Time) []DayAvailability {
	start = truncateToDay(start)
	end = truncateToDay(end)

	var days []DayAvailability
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, DayAvailability{
			Date:    d,
			Weekday: d.Weekday().String(),
		})
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsWeekend reports whether the day falls on Saturday or Sunday.
func (d DayAvailability) IsWeekend() bool {
	wd := d.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
