package planner

import (
	"errors"
	"fmt"
	"time"
)

// ScheduleRequest carries one generation request from the form to the prompt
// builder. Immutable once submitted.
type ScheduleRequest struct {
	Subject      string
	StudyGuide   string
	TestDate     time.Time
	WeekdayHours int
	WeekendHours int
}

// DateOf returns the calendar date of t, in t's location, as a UTC midnight
// timestamp. Form dates parse to UTC midnights, so comparisons against a
// wall-clock "now" must go through this rather than absolute-time truncation.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks the request against the form constraints.
func (r *ScheduleRequest) Validate(today time.Time) error {
	if r.Subject == "" {
		return errors.New("subject is required")
	}
	if r.TestDate.Before(DateOf(today)) {
		return errors.New("test date must not be in the past")
	}
	if r.WeekdayHours < 1 || r.WeekdayHours > 6 {
		return fmt.Errorf("weekday hours must be between 1 and 6, got %d", r.WeekdayHours)
	}
	if r.WeekendHours < 1 || r.WeekendHours > 12 {
		return fmt.Errorf("weekend hours must be between 1 and 12, got %d", r.WeekendHours)
	}
	return nil
}

// ScheduleRow is one parsed line of the generated plan table. Hours stays
// textual because the model occasionally emits non-numeric labels; coercion
// happens at event-creation time.
type ScheduleRow struct {
	Date  time.Time
	Hours string
	Topic string
}
