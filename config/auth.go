package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the identity backend.
type AuthMode string

const (
	// AuthModeGoTrue talks to a GoTrue-compatible identity API.
	AuthModeGoTrue AuthMode = "gotrue"
	// AuthModeMock uses the in-memory dev backend (development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "gotrue", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: gotrue, mock)", v)
	}
}

// GoTrueConfig points at the identity backend and tells us how to verify its access tokens.
// Set either JWTSecret (HS256 projects) or JWKSURL (asymmetric keys); with neither, every
// token is introspected against GET /user.
type GoTrueConfig struct {
	URL         string        `env:"URL"          envDefault:"http://localhost:9999"`
	APIKey      string        `env:"API_KEY"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWKSURL     string        `env:"JWKS_URL"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"authenticated"`
	JWTIssuer   string        `env:"JWT_ISSUER"`
	Timeout     time.Duration `env:"TIMEOUT"      envDefault:"15s"`

	// JMESPath expressions over user_metadata; empty keeps the built-in fallbacks.
	MetadataFirstName string `env:"METADATA_FIRST_NAME"`
	MetadataLastName  string `env:"METADATA_LAST_NAME"`
	MetadataCompany   string `env:"METADATA_COMPANY"`
	MetadataAvatarURL string `env:"METADATA_AVATAR_URL"`
}

// OAuthConfig controls third-party sign-in. Scopes are requested from every provider;
// an empty list leaves the backend's defaults.
type OAuthConfig struct {
	Providers   []string `env:"PROVIDERS"    envDefault:"azure,google"                     envSeparator:","`
	RedirectURL string   `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	Scopes      []string `env:"SCOPES"       envDefault:"email"                            envSeparator:","`
}

// DevAuthConfig controls the in-memory backend used when AUTH_MODE=mock.
type DevAuthConfig struct {
	// Accounts are seeded as "email:password" pairs separated by semicolons.
	Accounts    []string `env:"ACCOUNTS"     envDefault:"vendor@example.com:password1;admin@example.com:password1" envSeparator:";"`
	AutoConfirm bool     `env:"AUTO_CONFIRM" envDefault:"true"`
	OAuthEmail  string   `env:"OAUTH_EMAIL"  envDefault:"oauth.user@example.com"`
}

// DevAccount is one parsed DevAuthConfig.Accounts entry.
type DevAccount struct {
	Email    string
	Password string
}

// ParsedAccounts splits Accounts into email and password pairs.
func (c DevAuthConfig) ParsedAccounts() ([]DevAccount, error) {
	out := make([]DevAccount, 0, len(c.Accounts))
	for _, raw := range c.Accounts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		email, password, ok := strings.Cut(raw, ":")
		email = strings.TrimSpace(email)
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("dev auth account %q: want email:password", raw)
		}
		out = append(out, DevAccount{Email: email, Password: password})
	}
	return out, nil
}

// SessionConfig controls server-side sessions and the flows that create them.
type SessionConfig struct {
	TTL               time.Duration `env:"SESSION_TTL"              envDefault:"24h"`
	CallTimeout       time.Duration `env:"AUTH_CALL_TIMEOUT"        envDefault:"10s"`
	VerifyRedirectURL string        `env:"AUTH_VERIFY_REDIRECT_URL" envDefault:"http://localhost:8080/verify-email"`
	ResetRedirectURL  string        `env:"AUTH_RESET_REDIRECT_URL"  envDefault:"http://localhost:8080/reset-password"`
	PreferenceTTL     time.Duration `env:"PREFERENCE_TTL"           envDefault:"2160h"`
}

// ProvisioningConfig bounds how long sign-in waits for a freshly created profile row.
type ProvisioningConfig struct {
	Attempts int           `env:"PROFILE_PROVISION_ATTEMPTS" envDefault:"1"`
	Delay    time.Duration `env:"PROFILE_PROVISION_DELAY"    envDefault:"500ms"`
	Backoff  float64       `env:"PROFILE_PROVISION_BACKOFF"  envDefault:"1"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"gotrue"`

	GoTrue  GoTrueConfig  `envPrefix:"GOTRUE_"`
	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
	Session SessionConfig
	Retry   ProvisioningConfig

	// PrivilegedEmails grant the legal role. Entries are addresses or "@domain" suffixes.
	PrivilegedEmails []string `env:"PRIVILEGED_EMAILS" envSeparator:","`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	c.GoTrue.URL = strings.TrimRight(strings.TrimSpace(c.GoTrue.URL), "/")
	c.GoTrue.JWKSURL = strings.TrimSpace(c.GoTrue.JWKSURL)
	if c.GoTrue.Timeout <= 0 {
		c.GoTrue.Timeout = 15 * time.Second
	}

	c.OAuth.Providers = normalizeList(c.OAuth.Providers)
	c.OAuth.Scopes = normalizeList(c.OAuth.Scopes)

	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.CallTimeout <= 0 {
		c.Session.CallTimeout = 10 * time.Second
	}
	if c.Retry.Attempts < 0 {
		c.Retry.Attempts = 0
	}
	if c.Retry.Backoff < 1 {
		c.Retry.Backoff = 1
	}
}

// Validate reports configuration that cannot start the selected mode.
func (c *AuthConfig) Validate() error {
	switch c.Mode {
	case AuthModeGoTrue:
		if c.GoTrue.URL == "" {
			return errors.New("GOTRUE_URL is required when AUTH_MODE=gotrue")
		}
		if c.GoTrue.JWTSecret != "" && c.GoTrue.JWKSURL != "" {
			return errors.New("set only one of GOTRUE_JWT_SECRET and GOTRUE_JWKS_URL")
		}
	case AuthModeMock:
		if _, err := c.DevAuth.ParsedAccounts(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported auth mode %q", c.Mode)
	}
	if c.OAuth.RedirectURL == "" {
		return errors.New("OAUTH_REDIRECT_URL is required")
	}
	return nil
}

// normalizeList lower-cases and trims entries, dropping empty ones.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
