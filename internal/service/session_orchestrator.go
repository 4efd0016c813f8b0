package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/observability/statsd"
	"github.com/target/compliance-gate/internal/ports"
)

const (
	// MinPasswordLength is the shortest password accepted at signup and reset.
	MinPasswordLength = 6

	defaultCallTimeout = 10 * time.Second
	defaultSessionTTL  = 24 * time.Hour

	// transientSignupConflict is the description the identity backend attaches to an OAuth
	// callback when its post-signup hook raced another writer. The account usually exists anyway.
	transientSignupConflict = "database error saving new user"
)

// profileResolver is the slice of ProfileResolver the orchestrator depends on.
type profileResolver interface {
	Resolve(ctx context.Context, s domainauth.Session) (*domainauth.Profile, error)
}

// OrchestratorDeps groups the ports the orchestrator coordinates.
type OrchestratorDeps struct {
	Client      ports.SessionClient   // Required
	Sessions    ports.SessionStore    // Required
	Preferences ports.PreferenceStore // Optional: remembered email
	Profiles    profileResolver       // Required
	Classifier  domainauth.Classifier
}

// OrchestratorConfig tunes timeouts, session lifetime and redirect targets.
type OrchestratorConfig struct {
	CallTimeout       time.Duration // per backend call; default 10s
	SessionTTL        time.Duration // server-side session lifetime; default 24h
	OAuthProviders    []string      // allowed providers; empty allows any
	OAuthScopes       []string      // requested at OAuth initiation
	OAuthRedirectURL  string        // our callback URL
	VerifyRedirectURL string        // landing page for the signup verification email
	ResetRedirectURL  string        // landing page for the password reset email
	Now               func() time.Time
}

// SessionOrchestratorOptions groups dependencies for SessionOrchestrator.
type SessionOrchestratorOptions struct {
	Deps    OrchestratorDeps
	Config  OrchestratorConfig
	Metrics statsd.Sink // Optional: flow outcome counters and timings
	Logger  *slog.Logger
}

// SessionOrchestrator runs the login, signup, OAuth and password reset flows and
// resolves the current caller for the access guard.
type SessionOrchestrator struct {
	client     ports.SessionClient
	sessions   ports.SessionStore
	prefs      ports.PreferenceStore
	resolver   profileResolver
	classifier domainauth.Classifier
	cfg        OrchestratorConfig
	metrics    statsd.Sink
	logger     *slog.Logger
}

// NewSessionOrchestrator constructs a SessionOrchestrator.
func NewSessionOrchestrator(opts SessionOrchestratorOptions) *SessionOrchestrator {
	if opts.Deps.Client == nil {
		panic("SessionClient is required")
	}
	if opts.Deps.Sessions == nil {
		panic("SessionStore is required")
	}
	if opts.Deps.Profiles == nil {
		panic("profile resolver is required")
	}
	cfg := opts.Config
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = statsd.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionOrchestrator{
		client:     opts.Deps.Client,
		sessions:   opts.Deps.Sessions,
		prefs:      opts.Deps.Preferences,
		resolver:   opts.Deps.Profiles,
		classifier: opts.Deps.Classifier,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With("component", "session_orchestrator"),
	}
}

// Outcome is the terminal result of a flow.
type Outcome struct {
	Flow       FlowKind
	State      FlowState
	Trace      []FlowState
	Role       domainauth.Role
	RedirectTo string
	Session    *domainauth.Session
	Profile    *domainauth.Profile
	OAuth      *ports.OAuthStart
	Err        error
}

// Failed reports whether the flow ended in Failed.
func (o Outcome) Failed() bool { return o.State == StateFailed }

// Message is the stable user-facing text for a failed outcome.
func (o Outcome) Message() string { return apperrors.UserMessage(o.Err) }

// LoginInput is the password sign-in form.
type LoginInput struct {
	Email             string
	Password          string
	RememberMe        bool
	DeviceID          string // preference store key; empty disables remembering
	PreviousSessionID string // replaced by the new session
}

// Login runs Idle → Authenticating → ResolvingProfile → Classifying → Redirected|Failed.
// Invalid credentials fail immediately; nothing is retried.
func (o *SessionOrchestrator) Login(ctx context.Context, in LoginInput) Outcome {
	f := NewFlow(FlowLogin)
	email := domainauth.NormalizeEmail(in.Email)
	if !domainauth.LooksLikeEmail(email) {
		return o.fail(ctx, f, apperrors.ValidationField("email", "Please enter a valid email address."))
	}
	if in.Password == "" {
		return o.fail(ctx, f, apperrors.ValidationField("password", "Please enter your password."))
	}

	f.mustTo(StateAuthenticating)
	sess, err := backendCall(ctx, o.cfg.CallTimeout, func(c context.Context) (domainauth.Session, error) {
		return o.client.SignInWithPassword(c, email, in.Password)
	})
	if err != nil {
		return o.fail(ctx, f, err)
	}
	sess.Provider = domainauth.ProviderPassword
	o.rememberEmail(ctx, in, email)
	return o.complete(ctx, f, sess, in.PreviousSessionID)
}

// SignupInput is the registration form.
type SignupInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Metadata        domainauth.UserMetadata
}

// Signup runs Idle → Creating → AwaitingVerification|Failed. Input is validated before the
// backend is contacted; the flow never signs the user in, even when the backend auto-confirms.
func (o *SessionOrchestrator) Signup(ctx context.Context, in SignupInput) Outcome {
	f := NewFlow(FlowSignup)
	email := domainauth.NormalizeEmail(in.Email)
	if !domainauth.LooksLikeEmail(email) {
		return o.fail(ctx, f, apperrors.ValidationField("email", "Please enter a valid email address."))
	}
	if err := validateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return o.fail(ctx, f, err)
	}

	f.mustTo(StateCreating)
	res, err := backendCall(ctx, o.cfg.CallTimeout, func(c context.Context) (ports.SignUpResult, error) {
		return o.client.SignUp(c, ports.SignUpInput{
			Email:       email,
			Password:    in.Password,
			Metadata:    trimMetadata(in.Metadata),
			RedirectURL: o.cfg.VerifyRedirectURL,
		})
	})
	if err != nil {
		return o.fail(ctx, f, err)
	}

	f.mustTo(StateAwaitingVerification)
	o.logger.InfoContext(ctx, "signup accepted", "needs_verification", res.NeedsVerification)
	out := o.outcome(f)
	out.RedirectTo = domainauth.PathVerifyEmail
	return out
}

// BeginOAuth runs Idle → Redirecting. The outcome carries the provider URL and the PKCE
// verifier the caller must keep until the callback.
func (o *SessionOrchestrator) BeginOAuth(ctx context.Context, provider string) Outcome {
	f := NewFlow(FlowOAuth)
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || (len(o.cfg.OAuthProviders) > 0 && !slices.Contains(o.cfg.OAuthProviders, provider)) {
		return o.fail(ctx, f, apperrors.ValidationField("provider", "This sign-in provider is not supported."))
	}

	f.mustTo(StateRedirecting)
	start, err := backendCall(ctx, o.cfg.CallTimeout, func(c context.Context) (ports.OAuthStart, error) {
		return o.client.BeginOAuth(c, ports.OAuthStartInput{
			Provider:    provider,
			RedirectURL: o.cfg.OAuthRedirectURL,
			Scopes:      slices.Clone(o.cfg.OAuthScopes),
		})
	})
	if err != nil {
		return o.fail(ctx, f, err)
	}
	out := o.outcome(f)
	out.RedirectTo = start.AuthURL
	out.OAuth = &start
	return out
}

// OAuthCallbackInput is what the browser brings back from the provider.
type OAuthCallbackInput struct {
	Params            url.Values
	Verifier          string
	Existing          domainauth.SessionTokens // current tokens; loaded from PreviousSessionID when empty
	PreviousSessionID string
}

// CompleteOAuth runs CallbackReceived → ResolvingProfile → Classifying → Redirected|Failed.
// A callback reporting the backend's transient account-creation conflict gets exactly one
// GetCurrentSession check before the flow fails.
func (o *SessionOrchestrator) CompleteOAuth(ctx context.Context, in OAuthCallbackInput) Outcome {
	f, err := ResumeFlow(FlowOAuth, StateCallbackReceived)
	if err != nil {
		panic(err)
	}

	sess, err := backendCall(ctx, o.cfg.CallTimeout, func(c context.Context) (domainauth.Session, error) {
		return o.client.CompleteOAuthCallback(c, ports.CallbackInput{Params: in.Params, Verifier: in.Verifier})
	})
	if err != nil && ctx.Err() == nil && isTransientSignupConflict(in.Params) {
		o.logger.WarnContext(ctx, "oauth callback reported account-creation conflict; checking for a live session")
		if in.Existing.Empty() && in.PreviousSessionID != "" {
			if prev, gerr := o.sessions.Get(ctx, in.PreviousSessionID); gerr == nil {
				in.Existing = prev.Tokens
			}
		}
		sess, err = backendCall(ctx, o.cfg.CallTimeout, func(c context.Context) (domainauth.Session, error) {
			return o.client.GetCurrentSession(c, in.Existing)
		})
		if err == nil && !sess.Live(o.cfg.Now()) {
			err = apperrors.New(apperrors.ErrCodeTokenExpired, "no live session after callback error")
		}
	}
	if err != nil {
		return o.fail(ctx, f, err)
	}
	sess.Provider = domainauth.ProviderOAuth
	return o.complete(ctx, f, sess, in.PreviousSessionID)
}

// RequestPasswordReset runs Idle → Sending → Sent. It reports Sent whether or not the
// address has an account; backend failures are only logged.
func (o *SessionOrchestrator) RequestPasswordReset(ctx context.Context, email string) Outcome {
	f := NewFlow(FlowResetRequest)
	email = domainauth.NormalizeEmail(email)
	if !domainauth.LooksLikeEmail(email) {
		return o.fail(ctx, f, apperrors.ValidationField("email", "Please enter a valid email address."))
	}

	f.mustTo(StateSending)
	err := backendDo(ctx, o.cfg.CallTimeout, func(c context.Context) error {
		return o.client.RequestPasswordReset(c, email, o.cfg.ResetRedirectURL)
	})
	if err != nil {
		o.logger.WarnContext(ctx, "password reset request failed", "code", apperrors.GetCode(err), "error", err)
	}
	f.mustTo(StateSent)
	return o.outcome(f)
}

// RecoveryContext is the token context delivered by a password reset link.
type RecoveryContext struct {
	Type         string
	AccessToken  string
	RefreshToken string
}

// Valid reports whether the context is a recovery context carrying at least one token.
func (r RecoveryContext) Valid() bool {
	if r.Type != "recovery" && r.Type != "password_recovery" {
		return false
	}
	return r.AccessToken != "" || r.RefreshToken != ""
}

// ResetCompletionInput is the new-password form submitted from a reset link.
type ResetCompletionInput struct {
	Recovery        RecoveryContext
	Password        string
	ConfirmPassword string
}

// CompletePasswordReset runs Idle → Updating → Done|Failed.
func (o *SessionOrchestrator) CompletePasswordReset(ctx context.Context, in ResetCompletionInput) Outcome {
	f := NewFlow(FlowResetComplete)
	if !in.Recovery.Valid() {
		return o.fail(ctx, f, apperrors.New(apperrors.ErrCodeRecoveryToken, "missing or invalid recovery context"))
	}
	if err := validateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return o.fail(ctx, f, err)
	}

	f.mustTo(StateUpdating)
	tokens := domainauth.SessionTokens{AccessToken: in.Recovery.AccessToken, RefreshToken: in.Recovery.RefreshToken}
	err := backendDo(ctx, o.cfg.CallTimeout, func(c context.Context) error {
		return o.client.SetNewPassword(c, tokens, in.Password)
	})
	if err != nil {
		if apperrors.IsTokenExpired(err) || apperrors.Is(err, apperrors.ErrCodeInvalidCredentials) {
			err = apperrors.Wrap(err, apperrors.ErrCodeRecoveryToken, "recovery token rejected")
		}
		return o.fail(ctx, f, err)
	}

	// The recovery session has served its purpose.
	if serr := backendDo(ctx, o.cfg.CallTimeout, func(c context.Context) error {
		return o.client.SignOut(c, tokens)
	}); serr != nil {
		o.logger.WarnContext(ctx, "sign out of recovery session failed", "error", serr)
	}
	f.mustTo(StateDone)
	out := o.outcome(f)
	out.RedirectTo = domainauth.PathLogin
	return out
}

// Logout signs the session out at the backend (best effort) and deletes it locally.
func (o *SessionOrchestrator) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	sess, err := o.sessions.Get(ctx, sessionID)
	if err == nil && !sess.Tokens.Empty() {
		if serr := backendDo(ctx, o.cfg.CallTimeout, func(c context.Context) error {
			return o.client.SignOut(c, sess.Tokens)
		}); serr != nil {
			o.logger.WarnContext(ctx, "backend sign out failed", "user_id", sess.UserID, "error", serr)
		}
	}
	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Access is the live view of the caller used by the access guard.
type Access struct {
	Session domainauth.Session
	Profile *domainauth.Profile
	Subject domainauth.Subject
}

// CurrentAccess re-validates the stored session against the backend, persists rotated
// tokens, and resolves and classifies the caller. A missing, expired or revoked session
// yields a token_expired error and the stored session is removed.
func (o *SessionOrchestrator) CurrentAccess(ctx context.Context, sessionID string) (*Access, error) {
	if sessionID == "" {
		return nil, errNoSession()
	}
	stored, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, errNoSession()
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !stored.Live(o.cfg.Now()) {
		o.dropSession(ctx, sessionID)
		return nil, errNoSession()
	}

	live, err := backendCall(ctx, o.cfg.CallTimeout, func(c context.Context) (domainauth.Session, error) {
		return o.client.GetCurrentSession(c, stored.Tokens)
	})
	if err != nil {
		if apperrors.IsTokenExpired(err) || apperrors.Is(err, apperrors.ErrCodeInvalidCredentials) {
			o.dropSession(ctx, sessionID)
			return nil, errNoSession()
		}
		return nil, err
	}

	if live.Tokens != stored.Tokens && !live.Tokens.Empty() {
		stored.Tokens = live.Tokens
		if serr := o.sessions.Save(ctx, stored); serr != nil {
			o.logger.WarnContext(ctx, "persist rotated tokens failed", "user_id", stored.UserID, "error", serr)
		}
	}
	if live.Email != "" {
		stored.Email = live.Email
	}
	if live.Metadata != (domainauth.UserMetadata{}) {
		stored.Metadata = live.Metadata
	}

	profile, err := o.resolver.Resolve(ctx, stored)
	if err != nil {
		return nil, err
	}
	role := o.classifier.Classify(profile, stored.Email)
	return &Access{
		Session: stored,
		Profile: profile,
		Subject: domainauth.Subject{UserID: stored.UserID, Email: stored.Email, Role: role},
	}, nil
}

// RememberedEmail returns the email remembered for deviceID, or "".
func (o *SessionOrchestrator) RememberedEmail(ctx context.Context, deviceID string) string {
	if o.prefs == nil || deviceID == "" {
		return ""
	}
	v, ok, err := o.prefs.Get(ctx, deviceID, ports.PrefRememberedEmail)
	if err != nil {
		o.logger.WarnContext(ctx, "read remembered email failed", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// complete resolves, classifies and persists a freshly authenticated session.
func (o *SessionOrchestrator) complete(
	ctx context.Context,
	f *Flow,
	sess domainauth.Session,
	previousID string,
) Outcome {
	if ctx.Err() != nil {
		return o.fail(ctx, f, ctxError(ctx))
	}
	f.mustTo(StateResolvingProfile)
	profile, err := o.resolver.Resolve(ctx, sess)
	if err != nil {
		return o.fail(ctx, f, err)
	}

	f.mustTo(StateClassifying)
	role := o.classifier.Classify(profile, sess.Email)
	stored, err := o.persist(ctx, sess, previousID)
	if err != nil {
		return o.fail(ctx, f, err)
	}

	f.mustTo(StateRedirected)
	o.logger.InfoContext(ctx, "sign-in complete",
		"flow", f.Kind(), "user_id", sess.UserID, "role", role, "baseline_profile", profile.Synthetic)
	out := o.outcome(f)
	out.Role = role
	out.RedirectTo = domainauth.HomeFor(role)
	out.Session = &stored
	out.Profile = profile
	return out
}

func (o *SessionOrchestrator) persist(
	ctx context.Context,
	sess domainauth.Session,
	previousID string,
) (domainauth.Session, error) {
	now := o.cfg.Now()
	sess.ID = generateSessionID()
	sess.IsActive = true
	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = now
	}
	sess.ExpiresAt = now.Add(o.cfg.SessionTTL)
	if err := o.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "save session")
	}
	if previousID != "" {
		o.dropSession(ctx, previousID)
	}
	return sess, nil
}

func (o *SessionOrchestrator) dropSession(ctx context.Context, id string) {
	if err := o.sessions.Delete(ctx, id); err != nil {
		o.logger.WarnContext(ctx, "delete session failed", "error", err)
	}
}

func (o *SessionOrchestrator) rememberEmail(ctx context.Context, in LoginInput, email string) {
	if o.prefs == nil || in.DeviceID == "" {
		return
	}
	var err error
	if in.RememberMe {
		err = o.prefs.Set(ctx, in.DeviceID, ports.PrefRememberedEmail, email)
	} else {
		err = o.prefs.Delete(ctx, in.DeviceID, ports.PrefRememberedEmail)
	}
	if err != nil {
		o.logger.WarnContext(ctx, "update remembered email failed", "error", err)
	}
}

func (o *SessionOrchestrator) outcome(f *Flow) Outcome {
	o.record(f, "")
	return Outcome{Flow: f.Kind(), State: f.State(), Trace: f.Trace()}
}

// record emits one auth.flow counter per returned outcome, tagged by kind, state and,
// for failures, the error code.
func (o *SessionOrchestrator) record(f *Flow, code apperrors.ErrorCode) {
	tags := map[string]string{"flow": string(f.Kind()), "state": string(f.State())}
	if f.State() == StateFailed {
		if code == "" {
			code = apperrors.ErrCodeInternal
		}
		tags["code"] = string(code)
	}
	o.metrics.Count("auth.flow", 1, tags)
	o.metrics.Timing("auth.flow.duration", f.Elapsed(), map[string]string{"flow": string(f.Kind())})
}

func (o *SessionOrchestrator) fail(ctx context.Context, f *Flow, err error) Outcome {
	f.mustTo(StateFailed)
	level := slog.LevelInfo
	if code := apperrors.GetCode(err); code == "" || code == apperrors.ErrCodeInternal {
		level = slog.LevelError
	}
	o.logger.Log(ctx, level, "flow failed", "flow", f.Kind(), "code", apperrors.GetCode(err), "error", err)
	o.record(f, apperrors.GetCode(err))
	return Outcome{Flow: f.Kind(), State: f.State(), Trace: f.Trace(), Err: err}
}

// backendCall bounds fn by timeout and normalises its error: expiry of the call's own
// deadline becomes network, cancellation of ctx becomes canceled/timeout.
func backendCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(cctx)
	if err == nil {
		return v, nil
	}
	var zero T
	if ctx.Err() != nil {
		return zero, ctxError(ctx)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return zero, apperrors.Wrap(err, apperrors.ErrCodeNetwork, "identity backend timed out")
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return zero, err
	}
	return zero, apperrors.Wrap(err, apperrors.ErrCodeInternal, "identity backend call failed")
}

func backendDo(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	_, err := backendCall(ctx, timeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, fn(c)
	})
	return err
}

func validateNewPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperrors.ValidationField("password",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	if password != confirm {
		return apperrors.ValidationField("confirm_password", "Passwords do not match.")
	}
	return nil
}

func isTransientSignupConflict(params url.Values) bool {
	if params.Get("error") != "server_error" {
		return false
	}
	return strings.Contains(strings.ToLower(params.Get("error_description")), transientSignupConflict)
}

func trimMetadata(m domainauth.UserMetadata) domainauth.UserMetadata {
	return domainauth.UserMetadata{
		FirstName: strings.TrimSpace(m.FirstName),
		LastName:  strings.TrimSpace(m.LastName),
		Company:   strings.TrimSpace(m.Company),
		AvatarURL: strings.TrimSpace(m.AvatarURL),
	}
}

func errNoSession() error {
	return apperrors.New(apperrors.ErrCodeTokenExpired, "no active session")
}

// generateSessionID creates a random, URL-safe session identifier.
func generateSessionID() string {
	return uuid.New().String()
}
