package gcal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/rohitbr234/study-scheduler/config"
	"github.com/rohitbr234/study-scheduler/logger"
)

const googleIssuer = "https://accounts.google.com"

// OAuthManager owns the OAuth client identity and the token lifecycle for
// connected Google accounts. A token is refreshed at most once per use; a
// failed refresh is surfaced so the caller can discard the credential and
// restart the flow.
type OAuthManager struct {
	cfg    *config.GoogleConfig
	logger logger.Logger
	oauth  *oauth2.Config

	mu       sync.Mutex
	provider *oidc.Provider
}

// NewOAuthManager builds the OAuth client configuration. A local client
// secret file takes priority when present; otherwise the client id and secret
// from the environment are used with the public redirect URL.
func NewOAuthManager(cfg *config.GoogleConfig, l logger.Logger) (*OAuthManager, error) {
	oauthCfg, err := buildOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &OAuthManager{
		cfg:    cfg,
		logger: l,
		oauth:  oauthCfg,
	}, nil
}

func buildOAuthConfig(cfg *config.GoogleConfig) (*oauth2.Config, error) {
	scopes := []string{calendar.CalendarScope, oidc.ScopeOpenID, "email"}

	if b, err := os.ReadFile(cfg.CredentialsFile); err == nil {
		oauthCfg, err := google.ConfigFromJSON(b, scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse client secret file: %w", err)
		}
		oauthCfg.RedirectURL = cfg.LocalRedirectURL
		return oauthCfg, nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("no OAuth client configured: provide %s or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET", cfg.CredentialsFile)
	}

	redirectURL := cfg.PublicRedirectURL
	if redirectURL == "" {
		redirectURL = cfg.LocalRedirectURL
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}, nil
}

// Config exposes the underlying OAuth configuration.
func (m *OAuthManager) Config() *oauth2.Config {
	return m.oauth
}

// AuthURL returns the consent page URL for the given anti-forgery state.
// Offline access and a forced consent prompt are requested so a refresh token
// is always issued.
func (m *OAuthManager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token.
func (m *OAuthManager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// EnsureFresh returns a usable token, refreshing expired ones exactly once.
// On refresh failure the caller must treat the credential as gone.
func (m *OAuthManager) EnsureFresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil {
		return nil, fmt.Errorf("no credential available")
	}
	if token.Valid() {
		return token, nil
	}

	m.logger.Debug("refreshing expired google token")
	fresh, err := m.oauth.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return fresh, nil
}

// UserEmail resolves the email address of the connected account through the
// OpenID Connect UserInfo endpoint.
func (m *OAuthManager) UserEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	provider, err := m.oidcProvider(ctx)
	if err != nil {
		return "", err
	}

	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	return info.Email, nil
}

func (m *OAuthManager) oidcProvider(ctx context.Context) (*oidc.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.provider != nil {
		return m.provider, nil
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}
	m.provider = provider
	return provider, nil
}
