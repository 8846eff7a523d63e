package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// planRowView is one rendered schedule table row.
type planRowView struct {
	Date  string
	Hours string
	Topic string
}

// indexView is everything the landing page needs: the form's previous values,
// the generated plan if any, and the calendar connection status.
type indexView struct {
	Flashes []string

	Subject      string
	StudyGuide   string
	TestDate     string
	WeekdayHours int
	WeekendHours int
	MinDate      string

	HasPlan     bool
	PlanRows    []planRowView
	PlanText    string
	SkippedRows int
	TableSeen   bool

	Connected    bool
	AccountEmail string
}
