package gcal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/rohitbr234/study-scheduler/config"
	"github.com/rohitbr234/study-scheduler/logger"
	"github.com/rohitbr234/study-scheduler/planner"
)

//go:generate mockgen -source=events.go -destination=../tests/mocks/calendar.go -package=mocks
type CalendarAPI interface {
	CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
}

// CalendarFactory builds a CalendarAPI for a specific credential. Handlers
// take one so tests can substitute a fake API.
type CalendarFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (CalendarAPI, error)

type googleCalendarAPI struct {
	service *calendar.Service
}

// NewCalendarAPI builds a Calendar API client from an authorized token.
func NewCalendarAPI(ctx context.Context, tokenSource oauth2.TokenSource) (CalendarAPI, error) {
	service, err := calendar.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &googleCalendarAPI{service: service}, nil
}

func (g *googleCalendarAPI) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := g.service.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

// EventCreator turns parsed schedule rows into calendar events.
type EventCreator struct {
	cfg    *config.GoogleConfig
	logger logger.Logger
	api    CalendarAPI
}

func NewEventCreator(cfg *config.GoogleConfig, l logger.Logger, api CalendarAPI) *EventCreator {
	return &EventCreator{
		cfg:    cfg,
		logger: l,
		api:    api,
	}
}

// BuildEvent maps one schedule row to a calendar event. The session starts at
// the configured local hour and runs for the row's hour count; the event
// carries the subject in its summary and the topic in its description.
func (e *EventCreator) BuildEvent(subject string, row planner.ScheduleRow) (*calendar.Event, error) {
	hours, err := parseHours(row.Hours)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(e.cfg.EventTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid event timezone %q: %w", e.cfg.EventTimezone, err)
	}

	start := time.Date(row.Date.Year(), row.Date.Month(), row.Date.Day(), e.cfg.EventStartHour, 0, 0, 0, loc)
	end := start.Add(time.Duration(hours) * time.Hour)

	return &calendar.Event{
		Summary:     fmt.Sprintf("Study: %s", subject),
		Description: row.Topic,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: e.cfg.EventTimezone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: e.cfg.EventTimezone,
		},
	}, nil
}

// CreateEvents submits one event per row, strictly in order. The first
// failure aborts the remaining rows; events created before it stay on the
// calendar, and the count of them is returned alongside the error.
func (e *EventCreator) CreateEvents(ctx context.Context, subject string, rows []planner.ScheduleRow) (int, error) {
	created := 0

	for _, row := range rows {
		event, err := e.BuildEvent(subject, row)
		if err != nil {
			e.logger.Warn("aborting event batch on unbuildable row",
				"date", row.Date.Format("2006-01-02"), "hours", row.Hours, "reason", err.Error())
			return created, err
		}

		if _, err := e.api.CreateEvent(ctx, e.cfg.CalendarID, event); err != nil {
			e.logger.Error("failed to create calendar event", err,
				"date", row.Date.Format("2006-01-02"), "topic", row.Topic)
			return created, err
		}
		created++
	}

	e.logger.Info("calendar event batch finished", "created", created)
	return created, nil
}

// parseHours extracts a positive hour count from a table cell. Cells like
// "2 hours" keep their leading number.
func parseHours(raw string) (int, error) {
	cleaned := strings.TrimSpace(raw)
	if i := strings.IndexFunc(cleaned, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		cleaned = cleaned[:i]
	}

	hours, err := strconv.Atoi(cleaned)
	if err != nil || hours < 1 {
		return 0, fmt.Errorf("invalid hours cell %q", raw)
	}
	return hours, nil
}
