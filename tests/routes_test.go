package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"

	"github.com/rohitbr234/study-scheduler/api"
	"github.com/rohitbr234/study-scheduler/api/middlewares"
	"github.com/rohitbr234/study-scheduler/config"
	"github.com/rohitbr234/study-scheduler/gcal"
	"github.com/rohitbr234/study-scheduler/logger"
	"github.com/rohitbr234/study-scheduler/planner"
	"github.com/rohitbr234/study-scheduler/sessions"
	"github.com/rohitbr234/study-scheduler/tests/mocks"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Environment: "test",
		Google: &config.GoogleConfig{
			ClientID:         "client-id",
			ClientSecret:     "client-secret",
			CredentialsFile:  filepath.Join(t.TempDir(), "missing-credentials.json"),
			LocalRedirectURL: "http://localhost:8080/",
			CalendarID:       "primary",
			EventTimezone:    "America/New_York",
			EventStartHour:   18,
		},
		Server: &config.ServerConfig{
			ReadTimeout: 30 * time.Second,
		},
	}
}

type testEnv struct {
	router     *gin.Engine
	store      *sessions.Store
	oauth      *gcal.OAuthManager
	mockClient *mocks.MockClient
	mockAPI    *mocks.MockCalendarAPI
}

func setupTestRouter(t *testing.T, log logger.Logger) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)
	mockAPI := mocks.NewMockCalendarAPI(ctrl)

	cfg := testConfig(t)

	oauth, err := gcal.NewOAuthManager(cfg.Google, log)
	require.NoError(t, err)

	store := sessions.NewStore(time.Hour)
	router := api.NewRouter(cfg, log, mockClient, oauth, func(ctx context.Context, ts oauth2.TokenSource) (gcal.CalendarAPI, error) {
		return mockAPI, nil
	})

	r := gin.New()
	r.Use(middlewares.Session(store))
	r.GET("/", router.IndexHandler)
	r.POST("/schedule", router.GenerateScheduleHandler)
	r.POST("/calendar/connect", router.ConnectCalendarHandler)
	r.POST("/calendar/events", router.CreateEventsHandler)
	r.GET("/health", router.HealthcheckHandler)
	r.NoRoute(router.NotFoundHandler)

	return &testEnv{
		router:     r,
		store:      store,
		oauth:      oauth,
		mockClient: mockClient,
		mockAPI:    mockAPI,
	}
}

// seedSession registers a session and returns its cookie for follow-up
// requests.
func seedSession(env *testEnv) (*sessions.Session, *http.Cookie) {
	session := env.store.Create()
	return session, &http.Cookie{Name: middlewares.SessionCookie, Value: session.ID}
}

func perform(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func postForm(env *testEnv, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return perform(env, req)
}

func getPage(env *testEnv, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return perform(env, req)
}

func scheduleForm(subject string) url.Values {
	return url.Values{
		"subject":       {subject},
		"test_date":     {time.Now().AddDate(0, 0, 7).Format("2006-01-02")},
		"weekday_hours": {"2"},
		"weekend_hours": {"4"},
		"study_guide":   {"Chapters 1-3"},
	}
}

func TestHealthcheckHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug("healthcheck")

	env := setupTestRouter(t, mockLogger)

	w := getPage(env, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"OK"}`, w.Body.String())
}

func TestNotFoundHandler(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())

	w := getPage(env, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Requested route is not found")
}

func TestIndexHandler(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())

	w := getPage(env, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Study Scheduler")
	assert.Contains(t, w.Body.String(), "Generate schedule")

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, middlewares.SessionCookie, cookies[0].Name)
}

func TestGenerateScheduleHandler(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	_, cookie := seedSession(env)

	plan := "| Date | Hours | Topics |\n|---|---|---|\n| 2025-06-10 | 2 | Derivatives |\n| 2025-06-11 | 3 | Integrals |"
	env.mockClient.EXPECT().
		GenerateSchedule(gomock.Any(), planner.SystemInstruction, gomock.Any()).
		Return(plan, nil)

	w := postForm(env, "/schedule", scheduleForm("Calculus"), cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	page := getPage(env, "/", cookie)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Derivatives")
	assert.Contains(t, page.Body.String(), "Integrals")
	assert.Contains(t, page.Body.String(), "Connect Google Calendar")

	// The plan is shown verbatim alongside the parsed table.
	assert.Contains(t, page.Body.String(), "Plan as generated")
	assert.Contains(t, page.Body.String(), "|---|---|---|")
}

func TestGenerateScheduleHandlerValidation(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	_, cookie := seedSession(env)

	form := scheduleForm("")
	w := postForm(env, "/schedule", form, cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "subject is required")
}

func TestGenerateScheduleHandlerProviderFailure(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	_, cookie := seedSession(env)

	env.mockClient.EXPECT().
		GenerateSchedule(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", assert.AnError)

	w := postForm(env, "/schedule", scheduleForm("Calculus"), cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "Could not generate a plan right now")
}

func TestGenerateScheduleHandlerUnreadablePlan(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	_, cookie := seedSession(env)

	env.mockClient.EXPECT().
		GenerateSchedule(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("I cannot make a schedule for that.", nil)

	postForm(env, "/schedule", scheduleForm("Calculus"), cookie)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "without a readable schedule")
}

func TestConnectCalendarHandler(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)

	w := postForm(env, "/calendar/connect", url.Values{}, cookie)

	assert.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "state=")
	assert.Contains(t, location, "access_type=offline")
	assert.Equal(t, sessions.CredentialAwaitingCode, session.CredentialState())
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)
	session.BeginOAuth("expected-state")

	w := getPage(env, "/?code=auth-code&state=wrong-state", cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "could not be verified")
	assert.Equal(t, sessions.CredentialNone, session.CredentialState())
}

func TestOAuthCallbackUserDenied(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)
	session.BeginOAuth("expected-state")

	w := getPage(env, "/?error=access_denied", cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "cancelled")
	assert.Equal(t, sessions.CredentialNone, session.CredentialState())
}

func seedPlan(session *sessions.Session) {
	parse := planner.ParseSchedule("| 2025-06-10 | 2 | Derivatives |\n| 2025-06-11 | 3 | Integrals |")
	session.SetPlan(planner.ScheduleRequest{Subject: "Calculus", WeekdayHours: 2, WeekendHours: 4}, "raw plan", parse)
}

func TestCreateEventsHandler(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)
	seedPlan(session)
	session.CompleteOAuth(&oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}, "student@example.com")

	env.mockAPI.EXPECT().
		CreateEvent(gomock.Any(), "primary", gomock.Any()).
		Return(nil, nil).
		Times(2)

	w := postForm(env, "/calendar/events", url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "2 events added to your calendar")
	assert.Contains(t, page.Body.String(), "student@example.com")
}

func TestCreateEventsHandlerWithoutPlan(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	_, cookie := seedSession(env)

	w := postForm(env, "/calendar/events", url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "Generate a study plan before")
}

func TestCreateEventsHandlerWithoutCredential(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)
	seedPlan(session)

	w := postForm(env, "/calendar/events", url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "Connect Google Calendar first")
}

func TestCreateEventsHandlerDiscardsCredentialOnRefreshFailure(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)
	seedPlan(session)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer tokenServer.Close()
	env.oauth.Config().Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

	session.CompleteOAuth(&oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}, "student@example.com")

	w := postForm(env, "/calendar/events", url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)

	// The credential slot is back to its initial state and the next access
	// must route through full authorization.
	assert.Equal(t, sessions.CredentialNone, session.CredentialState())
	assert.Nil(t, session.Token())

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "Your Google connection expired. Please reconnect.")
	assert.Contains(t, page.Body.String(), "Connect Google Calendar")
}

func TestCreateEventsHandlerAbortsBatchOnFailure(t *testing.T) {
	env := setupTestRouter(t, logger.NewNoOpLogger())
	session, cookie := seedSession(env)
	seedPlan(session)
	session.CompleteOAuth(&oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}, "")

	gomock.InOrder(
		env.mockAPI.EXPECT().CreateEvent(gomock.Any(), "primary", gomock.Any()).Return(nil, nil),
		env.mockAPI.EXPECT().CreateEvent(gomock.Any(), "primary", gomock.Any()).Return(nil, assert.AnError),
	)

	postForm(env, "/calendar/events", url.Values{}, cookie)

	page := getPage(env, "/", cookie)
	assert.Contains(t, page.Body.String(), "1 events were added before an error stopped the batch")
}
