package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/rohitbr234/study-scheduler/api/middlewares"
	"github.com/rohitbr234/study-scheduler/completion"
	"github.com/rohitbr234/study-scheduler/config"
	"github.com/rohitbr234/study-scheduler/gcal"
	l "github.com/rohitbr234/study-scheduler/logger"
	"github.com/rohitbr234/study-scheduler/metrics"
	"github.com/rohitbr234/study-scheduler/planner"
)

type Router interface {
	NotFoundHandler(c *gin.Context)
	IndexHandler(c *gin.Context)
	GenerateScheduleHandler(c *gin.Context)
	ConnectCalendarHandler(c *gin.Context)
	CreateEventsHandler(c *gin.Context)
	HealthcheckHandler(c *gin.Context)
}

type RouterImpl struct {
	cfg             config.Config
	logger          l.Logger
	client          completion.Client
	oauth           *gcal.OAuthManager
	calendarFactory gcal.CalendarFactory
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ResponseJSON struct {
	Message string `json:"message"`
}

func NewRouter(cfg config.Config, logger l.Logger, client completion.Client, oauth *gcal.OAuthManager, calendarFactory gcal.CalendarFactory) Router {
	return &RouterImpl{
		cfg,
		logger,
		client,
		oauth,
		calendarFactory,
	}
}

func (router *RouterImpl) NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "Requested route is not found"})
}

func (router *RouterImpl) HealthcheckHandler(c *gin.Context) {
	router.logger.Debug("healthcheck")
	c.JSON(http.StatusOK, ResponseJSON{Message: "OK"})
}

// IndexHandler renders the landing page. When Google redirects back here with
// an authorization code, the code is exchanged before rendering and the query
// string is cleaned off with a redirect.
func (router *RouterImpl) IndexHandler(c *gin.Context) {
	session := middlewares.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Session unavailable"})
		return
	}

	if c.Query("code") != "" || c.Query("error") != "" {
		router.handleOAuthCallback(c)
		return
	}

	req, plan, parse := session.Plan()

	view := indexView{
		Flashes:      session.ConsumeFlashes(),
		Subject:      req.Subject,
		StudyGuide:   req.StudyGuide,
		WeekdayHours: req.WeekdayHours,
		WeekendHours: req.WeekendHours,
		MinDate:      time.Now().Format("2006-01-02"),
		HasPlan:      !parse.Empty(),
		PlanText:     plan,
		SkippedRows:  parse.Skipped,
		TableSeen:    parse.TableSeen,
		Connected:    session.Token() != nil,
		AccountEmail: session.AccountEmail(),
	}
	if !req.TestDate.IsZero() {
		view.TestDate = req.TestDate.Format("2006-01-02")
	}
	if view.WeekdayHours == 0 {
		view.WeekdayHours = 2
	}
	if view.WeekendHours == 0 {
		view.WeekendHours = 4
	}
	for _, row := range parse.Rows {
		view.PlanRows = append(view.PlanRows, planRowView{
			Date:  row.Date.Format("Monday, Jan 2, 2006"),
			Hours: row.Hours,
			Topic: row.Topic,
		})
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := indexTemplate.Execute(c.Writer, view); err != nil {
		router.logger.Error("failed to render index page", err)
	}
}

func (router *RouterImpl) handleOAuthCallback(c *gin.Context) {
	session := middlewares.SessionFromContext(c)

	pending, hasPending := session.TakeOAuthState()

	if errCode := c.Query("error"); errCode != "" {
		router.logger.Warn("google consent flow aborted", "error", errCode)
		session.AddFlash("Google Calendar connection was cancelled.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	if !hasPending || pending != c.Query("state") {
		router.logger.Warn("oauth callback state mismatch")
		session.AddFlash("Calendar connection could not be verified. Please try again.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	token, err := router.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		router.logger.Error("authorization code exchange failed", err)
		session.AddFlash("Connecting Google Calendar failed. Please try again.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	email, err := router.oauth.UserEmail(c.Request.Context(), token)
	if err != nil {
		// The connection still works without a display name.
		router.logger.Warn("could not resolve account email", "error", err.Error())
	}

	session.CompleteOAuth(token, email)
	session.AddFlash("Google Calendar connected.")
	c.Redirect(http.StatusFound, "/")
}

// GenerateScheduleHandler validates the form, asks the completion provider
// for a plan, and stores the parsed result in the session.
func (router *RouterImpl) GenerateScheduleHandler(c *gin.Context) {
	session := middlewares.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Session unavailable"})
		return
	}

	req, err := parseScheduleForm(c)
	if err != nil {
		session.AddFlash(err.Error())
		c.Redirect(http.StatusFound, "/")
		return
	}

	today := planner.DateOf(time.Now())
	if err := req.Validate(today); err != nil {
		session.AddFlash(err.Error())
		c.Redirect(http.StatusFound, "/")
		return
	}

	days := planner.Availability(today, req.TestDate)
	prompt := planner.BuildPrompt(req, days)

	start := time.Now()
	plan, err := router.client.GenerateSchedule(c.Request.Context(), planner.SystemInstruction, prompt)
	metrics.ObserveCompletionLatency(start)
	if err != nil {
		router.logger.Error("failed to generate schedule", err, "subject", req.Subject)
		session.AddFlash("Could not generate a plan right now. Please try again.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	parse := planner.ParseSchedule(plan)
	metrics.RecordParseResult(len(parse.Rows), parse.Skipped)
	session.SetPlan(req, plan, parse)

	router.logger.Info("schedule generated",
		"subject", req.Subject,
		"rows", len(parse.Rows),
		"skipped", parse.Skipped,
	)

	if parse.Empty() {
		session.AddFlash("The plan came back without a readable schedule. Please try again.")
	}
	c.Redirect(http.StatusFound, "/")
}

func parseScheduleForm(c *gin.Context) (planner.ScheduleRequest, error) {
	var req planner.ScheduleRequest

	req.Subject = c.PostForm("subject")
	req.StudyGuide = c.PostForm("study_guide")

	testDate, err := time.Parse("2006-01-02", c.PostForm("test_date"))
	if err != nil {
		return req, fmt.Errorf("please pick a valid test date")
	}
	req.TestDate = testDate

	req.WeekdayHours, err = strconv.Atoi(c.PostForm("weekday_hours"))
	if err != nil {
		return req, fmt.Errorf("weekday hours must be a number")
	}
	req.WeekendHours, err = strconv.Atoi(c.PostForm("weekend_hours"))
	if err != nil {
		return req, fmt.Errorf("weekend hours must be a number")
	}

	return req, nil
}

// ConnectCalendarHandler starts the consent flow by redirecting to Google
// with a fresh anti-forgery state bound to the session.
func (router *RouterImpl) ConnectCalendarHandler(c *gin.Context) {
	session := middlewares.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Session unavailable"})
		return
	}

	state := uuid.NewString()
	session.BeginOAuth(state)

	c.Redirect(http.StatusFound, router.oauth.AuthURL(state))
}

// CreateEventsHandler submits the session's parsed plan to Google Calendar.
// An expired credential gets one refresh; if that fails the credential is
// discarded and the user is asked to reconnect.
func (router *RouterImpl) CreateEventsHandler(c *gin.Context) {
	session := middlewares.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Session unavailable"})
		return
	}

	req, _, parse := session.Plan()
	if parse.Empty() {
		session.AddFlash("Generate a study plan before adding it to your calendar.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	token := session.Token()
	if token == nil {
		session.AddFlash("Connect Google Calendar first.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	fresh, err := router.oauth.EnsureFresh(c.Request.Context(), token)
	if err != nil {
		router.logger.Warn("discarding unusable google credential", "error", err.Error())
		session.ClearToken()
		session.AddFlash("Your Google connection expired. Please reconnect.")
		c.Redirect(http.StatusFound, "/")
		return
	}
	if fresh != token {
		session.SetToken(fresh)
	}

	calendarAPI, err := router.calendarFactory(c.Request.Context(), oauth2.StaticTokenSource(fresh))
	if err != nil {
		router.logger.Error("failed to build calendar client", err)
		session.AddFlash("Could not reach Google Calendar. Please try again.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	creator := gcal.NewEventCreator(router.cfg.Google, router.logger, calendarAPI)
	created, err := creator.CreateEvents(c.Request.Context(), req.Subject, parse.Rows)

	failed := 0
	if err != nil {
		failed = 1
	}
	metrics.RecordEventsCreated(created, failed)

	switch {
	case err != nil && created == 0:
		session.AddFlash("No events could be added to your calendar. Please try again.")
	case err != nil:
		session.AddFlash(fmt.Sprintf("%d events were added before an error stopped the batch. Please try again for the rest.", created))
	default:
		session.AddFlash(fmt.Sprintf("%d events added to your calendar.", created))
	}
	c.Redirect(http.StatusFound, "/")
}
