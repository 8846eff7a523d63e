package planner

import (
	"fmt"
	"strings"
)

// SystemInstruction is the fixed system message sent with every generation
// request.
const SystemInstruction = "You format schedules in neat markdown tables."

const dateLayout = "2006-01-02"

// BuildPrompt assembles the instruction string for the completion provider.
// The actual hour and topic assignment is the model's responsibility; this is
// a formatting contract, not a computed schedule.
func BuildPrompt(req ScheduleRequest, days []DayAvailability) string {
	var b strings.Builder

	b.WriteString("You are a study planning assistant.\n")
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "Test date: %s\n", req.TestDate.Format(dateLayout))
	fmt.Fprintf(&b, "Days left: %d\n", len(days))
	fmt.Fprintf(&b, "Hours available on weekdays: %d\n", req.WeekdayHours)
	fmt.Fprintf(&b, "Hours available on weekends: %d\n", req.WeekendHours)

	guide := req.StudyGuide
	if guide == "" {
		guide = "None"
	}
	fmt.Fprintf(&b, "Study guide: %s\n", guide)

	b.WriteString("\nAvailable days:\n")
	for _, day := range days {
		fmt.Fprintf(&b, "- %s (%s)\n", day.Date.Format(dateLayout), day.Weekday)
	}

	b.WriteString("\nReturn the study schedule as a markdown table with exactly ")
	b.WriteString("three columns in this order: Date | Hours | Topics.\n")
	fmt.Fprintf(&b, "Never assign more than %d hours to a weekday or %d hours to a weekend day.\n",
		req.WeekdayHours, req.WeekendHours)
	b.WriteString("Keep each topic under 15 words and order topics so the plan is logical and progressive.\n")
	b.WriteString("Do not add explanatory prose outside the table and do not use decorative symbols.\n")

	return b.String()
}
