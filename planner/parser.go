package planner

import (
	"strings"
	"time"
)

// ParseResult is the structured outcome of scanning a generated plan.
// Skipped counts candidate table rows that were dropped, so silent data loss
// is observable by the caller; TableSeen distinguishes "no table found" from
// "table found but nothing survived".
type ParseResult struct {
	Rows      []ScheduleRow
	Skipped   int
	TableSeen bool
}

// Empty reports whether no rows survived parsing.
func (r ParseResult) Empty() bool {
	return len(r.Rows) == 0
}

// ParseSchedule scans the plan text line by line and extracts table rows.
//
// A line is a candidate row when it contains a pipe separator and is neither
// the header row (contains the literal "Date") nor a markdown divider
// (contains "---"). Candidates are split on the pipe, trimmed, and emptied
// cells dropped; rows keep their source order, need at least three remaining
// fields, and survive only if the first field parses as a date. Duplicate
// dates are kept. Any line with three or more pipe-delimited fields is
// treated as data, even mid-prose pipes; this is a heuristic, not a strict
// table grammar.
func ParseSchedule(text string) ParseResult {
	result := ParseResult{}
	refYear := time.Now().Year()

	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		if strings.Contains(line, "Date") || strings.Contains(line, "---") {
			result.TableSeen = true
			continue
		}
		result.TableSeen = true

		var fields []string
		for _, cell := range strings.Split(line, "|") {
			cell = strings.TrimSpace(cell)
			if cell != "" {
				fields = append(fields, cell)
			}
		}
		if len(fields) < 3 {
			result.Skipped++
			continue
		}

		date, err := ParseDate(fields[0], refYear)
		if err != nil {
			result.Skipped++
			continue
		}

		result.Rows = append(result.Rows, ScheduleRow{
			Date:  date,
			Hours: fields[1],
			Topic: fields[2],
		})
	}

	return result
}
