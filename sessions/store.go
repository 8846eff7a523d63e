package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/rohitbr234/study-scheduler/planner"
)

// CredentialState describes where a session's Google credential sits in its
// lifecycle.
type CredentialState string

const (
	// CredentialNone means no connection attempt has been made.
	CredentialNone CredentialState = "none"
	// CredentialAwaitingCode means the consent page was issued and the
	// callback has not arrived yet.
	CredentialAwaitingCode CredentialState = "awaiting_code"
	// CredentialConnected means a usable token is held.
	CredentialConnected CredentialState = "connected"
)

// Session carries one visitor's state across requests: the submitted form,
// the generated plan, and the Google credential slot.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastSeen   time.Time
	request    planner.ScheduleRequest
	plan       string
	parse      planner.ParseResult
	token      *oauth2.Token
	oauthState string
	email      string
	flashes    []string
}

// SetPlan stores a freshly generated plan, replacing any previous one.
func (s *Session) SetPlan(request planner.ScheduleRequest, plan string, parse planner.ParseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = request
	s.plan = plan
	s.parse = parse
}

// Plan returns the stored form input, raw plan text, and parse outcome.
func (s *Session) Plan() (planner.ScheduleRequest, string, planner.ParseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request, s.plan, s.parse
}

// HasPlan reports whether a plan with at least one parsed row is stored.
func (s *Session) HasPlan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.parse.Empty()
}

// BeginOAuth records the anti-forgery state for an in-flight consent flow.
// Starting a new flow invalidates any previous pending one.
func (s *Session) BeginOAuth(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oauthState = state
}

// TakeOAuthState consumes the pending state nonce. The second return is false
// when no flow is pending, so a replayed callback cannot match twice.
func (s *Session) TakeOAuthState() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.oauthState
	s.oauthState = ""
	return state, state != ""
}

// CompleteOAuth installs the exchanged token and resolved account email.
func (s *Session) CompleteOAuth(token *oauth2.Token, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.email = email
	s.oauthState = ""
}

// Token returns the held credential, or nil.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken replaces the held credential after a refresh.
func (s *Session) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// ClearToken discards the credential, returning the slot to its initial
// state. Used when a refresh fails.
func (s *Session) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.email = ""
}

// AccountEmail returns the connected account's email, or empty.
func (s *Session) AccountEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// CredentialState derives the credential slot's state.
func (s *Session) CredentialState() CredentialState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.token != nil:
		return CredentialConnected
	case s.oauthState != "":
		return CredentialAwaitingCode
	default:
		return CredentialNone
	}
}

// AddFlash queues a one-shot message for the next page render.
func (s *Session) AddFlash(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, message)
}

// ConsumeFlashes returns queued messages and clears the queue.
func (s *Session) ConsumeFlashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes := s.flashes
	s.flashes = nil
	return flashes
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

// Store is an in-memory session registry keyed by opaque cookie IDs. Sessions
// idle longer than the TTL are swept on the next create.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

const DefaultTTL = 12 * time.Hour

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create registers a new session with a random ID.
func (st *Store) Create() *Session {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(now)
	st.sessions[session.ID] = session
	return session
}

// Get looks up a live session and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := time.Now()
	if session.expired(now, st.ttl) {
		st.Delete(id)
		return nil, false
	}
	session.touch(now)
	return session, true
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) sweepLocked(now time.Time) {
	for id, session := range st.sessions {
		if session.expired(now, st.ttl) {
			delete(st.sessions, id)
		}
	}
}
