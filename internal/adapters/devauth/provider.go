package devauth

// Package devauth provides an in-memory identity backend for local development and tests.
// Passwords are bcrypt-hashed; tokens are random and live only in process memory.

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

// Account is a seeded development account.
type Account struct {
	ID       string // optional; generated when empty
	Email    string
	Password string
	Metadata domainauth.UserMetadata
}

// Config controls the dev backend.
type Config struct {
	Accounts    []Account
	AutoConfirm bool          // signups can sign in without verifying their email
	OAuthEmail  string        // identity returned by every OAuth sign-in; default oauth.user@example.com
	TokenTTL    time.Duration // access token lifetime; default 1h
	BcryptCost  int           // default bcrypt.DefaultCost
	Now         func() time.Time
	Logger      *slog.Logger
}

type user struct {
	id        string
	email     string
	hash      []byte
	confirmed bool
	metadata  domainauth.UserMetadata
}

type grant struct {
	userID    string
	expiresAt time.Time
	recovery  bool
}

type oauthState struct {
	provider string
	verifier string
}

// Provider implements ports.SessionClient in memory. It is safe for concurrent use.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	users    map[string]*user // by normalised email
	access   map[string]grant
	refresh  map[string]string // refresh token -> user id
	codes    map[string]oauthState
	recovery map[string]string // email -> latest recovery token
}

// NewProvider constructs a dev backend and seeds cfg.Accounts.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.OAuthEmail == "" {
		cfg.OAuthEmail = "oauth.user@example.com"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		cfg:      cfg,
		logger:   logger.With("component", "devauth"),
		users:    make(map[string]*user),
		access:   make(map[string]grant),
		refresh:  make(map[string]string),
		codes:    make(map[string]oauthState),
		recovery: make(map[string]string),
	}
	for _, a := range cfg.Accounts {
		if _, err := p.addUser(a, true); err != nil {
			return nil, fmt.Errorf("dev auth: seed %s: %w", a.Email, err)
		}
	}
	return p, nil
}

func (p *Provider) addUser(a Account, confirmed bool) (*user, error) {
	email := domainauth.NormalizeEmail(a.Email)
	if !domainauth.LooksLikeEmail(email) {
		return nil, apperrors.ValidationField("email", "Please enter a valid email address.")
	}
	if _, exists := p.users[email]; exists {
		return nil, apperrors.New(apperrors.ErrCodeAccountExists, "User already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), p.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "password cannot be hashed")
	}
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	u := &user{id: id, email: email, hash: hash, confirmed: confirmed, metadata: a.Metadata}
	p.users[email] = u
	return u, nil
}

func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (domainauth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[domainauth.NormalizeEmail(email)]
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeInvalidCredentials, "Invalid login credentials")
	}
	if !u.confirmed {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeInvalidCredentials, "Email not confirmed")
	}
	return p.issue(u, domainauth.ProviderPassword, false)
}

func (p *Provider) SignUp(_ context.Context, in ports.SignUpInput) (ports.SignUpResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.addUser(Account{Email: in.Email, Password: in.Password, Metadata: in.Metadata}, p.cfg.AutoConfirm)
	if err != nil {
		return ports.SignUpResult{}, err
	}
	if !u.confirmed {
		p.logger.Info("dev signup awaiting confirmation", "email", u.email, "redirect", in.RedirectURL)
		return ports.SignUpResult{NeedsVerification: true}, nil
	}
	s, err := p.issue(u, domainauth.ProviderPassword, false)
	if err != nil {
		return ports.SignUpResult{}, err
	}
	return ports.SignUpResult{Session: &s}, nil
}

// Confirm marks email as verified, standing in for the link in the verification email.
func (p *Provider) Confirm(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[domainauth.NormalizeEmail(email)]
	if ok {
		u.confirmed = true
	}
	return ok
}

// BeginOAuth short-circuits the provider round trip: the returned URL points straight back
// at RedirectURL with a one-time code.
func (p *Provider) BeginOAuth(_ context.Context, in ports.OAuthStartInput) (ports.OAuthStart, error) {
	code, err := randomString(24)
	if err != nil {
		return ports.OAuthStart{}, fmt.Errorf("generate code: %w", err)
	}
	verifier, err := randomString(43)
	if err != nil {
		return ports.OAuthStart{}, fmt.Errorf("generate verifier: %w", err)
	}
	target := in.RedirectURL
	if target == "" {
		target = "/auth/callback"
	}
	u, err := url.Parse(target)
	if err != nil {
		return ports.OAuthStart{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid redirect url")
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()

	p.mu.Lock()
	p.codes[code] = oauthState{provider: in.Provider, verifier: verifier}
	p.mu.Unlock()
	return ports.OAuthStart{AuthURL: u.String(), Verifier: verifier}, nil
}

func (p *Provider) CompleteOAuthCallback(_ context.Context, in ports.CallbackInput) (domainauth.Session, error) {
	if e := in.Params.Get("error"); e != "" {
		desc := in.Params.Get("error_description")
		if desc == "" {
			desc = e
		}
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeProvider, desc)
	}
	code := in.Params.Get("code")

	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.codes[code]
	delete(p.codes, code)
	if !ok || subtle.ConstantTimeCompare([]byte(st.verifier), []byte(in.Verifier)) != 1 {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeProvider, "invalid or reused authorization code")
	}
	email := domainauth.NormalizeEmail(p.cfg.OAuthEmail)
	u, exists := p.users[email]
	if !exists {
		pw, err := randomString(32)
		if err != nil {
			return domainauth.Session{}, fmt.Errorf("generate password: %w", err)
		}
		u, err = p.addUser(Account{Email: email, Password: pw}, true)
		if err != nil {
			return domainauth.Session{}, err
		}
	}
	return p.issue(u, domainauth.ProviderOAuth, false)
}

func (p *Provider) GetCurrentSession(_ context.Context, tokens domainauth.SessionTokens) (domainauth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.cfg.Now()
	if g, ok := p.access[tokens.AccessToken]; ok && !g.recovery && now.Before(g.expiresAt) {
		u := p.userByID(g.userID)
		if u == nil {
			return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "user no longer exists")
		}
		return p.sessionFor(u, domainauth.ProviderPassword, tokens.AccessToken, tokens.RefreshToken, g.expiresAt), nil
	}
	userID, ok := p.refresh[tokens.RefreshToken]
	if !ok || tokens.RefreshToken == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "session expired")
	}
	// Refresh tokens are single use.
	delete(p.refresh, tokens.RefreshToken)
	delete(p.access, tokens.AccessToken)
	u := p.userByID(userID)
	if u == nil {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "user no longer exists")
	}
	return p.issue(u, domainauth.ProviderPassword, false)
}

func (p *Provider) RequestPasswordReset(_ context.Context, email, redirectURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[domainauth.NormalizeEmail(email)]
	if !ok {
		return nil
	}
	s, err := p.issue(u, domainauth.ProviderPassword, true)
	if err != nil {
		return err
	}
	p.recovery[u.email] = s.Tokens.AccessToken
	link := redirectURL + "#type=recovery&access_token=" + url.QueryEscape(s.Tokens.AccessToken)
	p.logger.Info("dev password reset link", "email", u.email, "link", link)
	return nil
}

// RecoveryToken returns the latest recovery token issued for email.
func (p *Provider) RecoveryToken(email string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.recovery[domainauth.NormalizeEmail(email)]
	return t, ok
}

func (p *Provider) SetNewPassword(_ context.Context, tokens domainauth.SessionTokens, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.access[tokens.AccessToken]
	if !ok || !p.cfg.Now().Before(g.expiresAt) {
		return apperrors.New(apperrors.ErrCodeTokenExpired, "token is expired or invalid")
	}
	u := p.userByID(g.userID)
	if u == nil {
		return apperrors.New(apperrors.ErrCodeTokenExpired, "user no longer exists")
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(newPassword)) == nil {
		return apperrors.ValidationField("password", "New password should be different from the old password.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return apperrors.ValidationField("password", "Password is too long.")
		}
		return fmt.Errorf("hash password: %w", err)
	}
	u.hash = hash
	if g.recovery {
		delete(p.recovery, u.email)
	}
	return nil
}

func (p *Provider) SignOut(_ context.Context, tokens domainauth.SessionTokens) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.access, tokens.AccessToken)
	delete(p.refresh, tokens.RefreshToken)
	return nil
}

// issue mints a token pair for u. Callers hold p.mu.
func (p *Provider) issue(u *user, provider domainauth.Provider, recovery bool) (domainauth.Session, error) {
	at, err := randomString(40)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate access token: %w", err)
	}
	rt, err := randomString(40)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	exp := p.cfg.Now().Add(p.cfg.TokenTTL)
	p.access[at] = grant{userID: u.id, expiresAt: exp, recovery: recovery}
	if !recovery {
		p.refresh[rt] = u.id
	} else {
		rt = ""
	}
	return p.sessionFor(u, provider, at, rt, exp), nil
}

func (p *Provider) sessionFor(u *user, provider domainauth.Provider, at, rt string, exp time.Time) domainauth.Session {
	return domainauth.Session{
		UserID:   u.id,
		Email:    u.email,
		Provider: provider,
		IssuedAt: p.cfg.Now(),
		IsActive: true,
		Tokens:   domainauth.SessionTokens{AccessToken: at, RefreshToken: rt, ExpiresAt: exp},
		Metadata: u.metadata,
	}
}

func (p *Provider) userByID(id string) *user {
	for _, u := range p.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Enough random bytes to produce at least n base64 URL chars.
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	return s[:n], nil
}
