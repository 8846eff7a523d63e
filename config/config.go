package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the configuration for the study scheduler.
type Config struct {
	// General settings
	ApplicationName string `env:"APPLICATION_NAME, default=study-scheduler" description:"The name of the application"`
	Environment     string `env:"ENVIRONMENT, default=production" description:"The environment"`

	// Completion provider settings
	Completion *CompletionConfig `env:", prefix=OPENAI_" description:"Completion provider configuration"`

	// Google Calendar settings
	Google *GoogleConfig `env:", prefix=GOOGLE_" description:"Google Calendar configuration"`

	// Server settings
	Server *ServerConfig `env:", prefix=SERVER_" description:"Server configuration"`
}

// CompletionConfig configures the hosted text-completion provider.
type CompletionConfig struct {
	APIKey       string        `env:"API_KEY" type:"secret" description:"Completion provider API key"`
	APIURL       string        `env:"API_URL, default=https://api.openai.com" description:"Completion provider base URL"`
	Model        string        `env:"MODEL, default=gpt-4o-mini" description:"Model identifier"`
	Timeout      time.Duration `env:"TIMEOUT, default=60s" description:"Per-request timeout"`
	MaxRetries   int           `env:"MAX_RETRIES, default=2" description:"Retry attempts after the first failure"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF, default=1s" description:"Base backoff between retries"`
}

// GoogleConfig configures the OAuth client identity and event defaults.
//
// When CredentialsFile exists on disk the client identity is read from it and
// the local redirect URL is used; otherwise the client id/secret pair and the
// public redirect URL apply.
type GoogleConfig struct {
	ClientID          string `env:"CLIENT_ID" type:"secret" description:"OAuth client ID"`
	ClientSecret      string `env:"CLIENT_SECRET" type:"secret" description:"OAuth client secret"`
	CredentialsFile   string `env:"CREDENTIALS_FILE, default=credentials.json" description:"Local OAuth client secret file"`
	LocalRedirectURL  string `env:"LOCAL_REDIRECT_URL, default=http://localhost:8080/" description:"Redirect URL for local development"`
	PublicRedirectURL string `env:"PUBLIC_REDIRECT_URL" description:"Redirect URL for deployed environments"`
	CalendarID        string `env:"CALENDAR_ID, default=primary" description:"Calendar receiving study events"`
	EventTimezone     string `env:"EVENT_TIMEZONE, default=America/New_York" description:"Timezone for created events"`
	EventStartHour    int    `env:"EVENT_START_HOUR, default=18" description:"Local start hour for study sessions"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0" description:"Server host"`
	Port         string        `env:"PORT, default=8080" description:"Server port"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s" description:"Read timeout"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s" description:"Write timeout"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s" description:"Idle timeout"`
}

// Load configuration
func (cfg *Config) Load(lookuper envconfig.Lookuper) (Config, error) {
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}

	if cfg.Completion.APIKey == "" {
		println("Warn: completion provider API key is not configured")
	}

	return *cfg, nil
}
