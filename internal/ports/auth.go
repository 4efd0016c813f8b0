package ports

// Package ports defines interfaces (hexagonal ports) for identity, profile and session behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"net/url"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

// SignUpInput carries the registration form after validation.
type SignUpInput struct {
	Email       string
	Password    string
	Metadata    domainauth.UserMetadata
	RedirectURL string // where the verification email should land
}

// SignUpResult reports what the backend did with a registration. Session is nil when
// the account still needs email verification.
type SignUpResult struct {
	Session           *domainauth.Session
	NeedsVerification bool
}

// OAuthStartInput starts a third-party sign-in.
type OAuthStartInput struct {
	Provider    string
	RedirectURL string
	Scopes      []string
}

// OAuthStart is where the browser must go next and the PKCE verifier to keep until the callback.
type OAuthStart struct {
	AuthURL  string
	Verifier string
}

// CallbackInput is the raw query of the OAuth callback plus the verifier stored at begin.
type CallbackInput struct {
	Params   url.Values
	Verifier string
}

// SessionClient talks to the identity backend. Every error it returns is an *errors.AppError
// with one of the codes invalid_credentials, account_exists, provider_error, network,
// token_expired or validation; raw backend codes never leave the adapter.
type SessionClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUp(ctx context.Context, in SignUpInput) (SignUpResult, error)
	BeginOAuth(ctx context.Context, in OAuthStartInput) (OAuthStart, error)
	// CompleteOAuthCallback exchanges the callback code. A provider-reported error in the
	// parameters is returned as provider_error with the description as the message.
	CompleteOAuthCallback(ctx context.Context, in CallbackInput) (domainauth.Session, error)
	// GetCurrentSession introspects the session identified by tokens, refreshing once if the
	// access token has expired. The returned session may carry rotated tokens.
	GetCurrentSession(ctx context.Context, tokens domainauth.SessionTokens) (domainauth.Session, error)
	RequestPasswordReset(ctx context.Context, email, redirectURL string) error
	SetNewPassword(ctx context.Context, tokens domainauth.SessionTokens, newPassword string) error
	SignOut(ctx context.Context, tokens domainauth.SessionTokens) error
}

// SessionStore persists and retrieves browser sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// PreferenceStore is a small per-device key/value store for non-sensitive UI preferences
// such as the remembered login email. It never holds credentials.
type PreferenceStore interface {
	Get(ctx context.Context, deviceID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, deviceID, key, value string) error
	Delete(ctx context.Context, deviceID, key string) error
}

// PrefRememberedEmail is the preference key written by the login flow when "remember me" is set.
const PrefRememberedEmail = "remembered_email"
