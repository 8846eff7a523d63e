package planner

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing a table's date column. The
// model is asked for ISO dates but routinely drifts into prose formats.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Monday, January 2, 2006",
	"Monday, Jan 2, 2006",
	"Monday January 2, 2006",
}

// yearlessLayouts cover dates where the model omits the year; the reference
// year is filled in afterwards.
var yearlessLayouts = []string{
	"Jan 2",
	"January 2",
	"01/02",
	"Monday, January 2",
	"Monday, Jan 2",
}

// ParseDate leniently parses a date cell. Emphasis markers and surrounding
// whitespace are stripped first; year-less dates resolve against refYear.
func ParseDate(raw string, refYear int) (time.Time, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "*", ""))
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}

	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return time.Date(refYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date %q", cleaned)
}
