package gotrue

// Package gotrue implements ports.SessionClient against a GoTrue (Supabase Auth) compatible
// REST API: password and refresh-token grants, PKCE OAuth, signup, recovery and logout.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

const maxResponseBytes = 1 << 20

// Config holds configuration for the GoTrue client.
type Config struct {
	BaseURL    string        // e.g. https://project.supabase.co/auth/v1
	APIKey     string        // sent as the apikey header
	HTTPClient *http.Client  // Optional, defaults to a client with a 15s timeout
	Verifier   TokenVerifier // Optional; nil introspects every token with GET /user
	Metadata   MetadataPaths // Optional, defaults to DefaultMetadataPaths
	Now        func() time.Time
	Logger     *slog.Logger
}

// Client implements ports.SessionClient over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	verifier   TokenVerifier
	metadata   metadataExtractor
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gotrue base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("gotrue base URL: %w", err)
	}
	md, err := newMetadataExtractor(cfg.Metadata)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		verifier:   cfg.Verifier,
		metadata:   md,
		now:        now,
		logger:     logger.With("component", "gotrue"),
	}, nil
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         *gotrueUser `json:"user"`
}

// signupResponse is a session when the server auto-confirms and a bare user otherwise.
type signupResponse struct {
	tokenResponse
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignInWithPassword implements ports.SessionClient.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		return domainauth.Session{}, err
	}
	return c.sessionFrom(resp, domainauth.ProviderPassword)
}

// SignUp implements ports.SessionClient.
func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) (ports.SignUpResult, error) {
	body := map[string]any{"email": in.Email, "password": in.Password}
	if data := metadataPayload(in.Metadata); len(data) > 0 {
		body["data"] = data
	}
	var query url.Values
	if in.RedirectURL != "" {
		query = url.Values{"redirect_to": {in.RedirectURL}}
	}
	var resp signupResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/signup", query: query, body: body}, &resp); err != nil {
		return ports.SignUpResult{}, err
	}
	if resp.AccessToken == "" {
		return ports.SignUpResult{NeedsVerification: true}, nil
	}
	s, err := c.sessionFrom(resp.tokenResponse, domainauth.ProviderPassword)
	if err != nil {
		return ports.SignUpResult{}, err
	}
	return ports.SignUpResult{Session: &s}, nil
}

// BeginOAuth implements ports.SessionClient. The returned URL points at the backend's
// /authorize endpoint with a PKCE S256 challenge; the verifier must be kept for the callback.
func (c *Client) BeginOAuth(_ context.Context, in ports.OAuthStartInput) (ports.OAuthStart, error) {
	if strings.TrimSpace(in.Provider) == "" {
		return ports.OAuthStart{}, apperrors.ValidationField("provider", "An OAuth provider is required.")
	}
	verifier := oauth2.GenerateVerifier()
	conf := oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: c.baseURL + "/authorize"}}
	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", in.Provider),
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_to", in.RedirectURL))
	}
	if len(in.Scopes) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scopes", strings.Join(in.Scopes, " ")))
	}
	return ports.OAuthStart{AuthURL: conf.AuthCodeURL("", opts...), Verifier: verifier}, nil
}

// CompleteOAuthCallback implements ports.SessionClient.
func (c *Client) CompleteOAuthCallback(ctx context.Context, in ports.CallbackInput) (domainauth.Session, error) {
	if code := in.Params.Get("error"); code != "" {
		desc := in.Params.Get("error_description")
		return domainauth.Session{}, apperrors.Wrap(
			fmt.Errorf("%s: %s", code, desc), apperrors.ErrCodeProvider, "oauth callback reported an error")
	}
	authCode := in.Params.Get("code")
	if authCode == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeProvider, "oauth callback is missing the code")
	}
	if in.Verifier == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeProvider, "oauth verifier is missing")
	}
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"pkce"}},
		body:   map[string]string{"auth_code": authCode, "code_verifier": in.Verifier},
	}, &resp)
	if err != nil {
		if apperrors.IsNetwork(err) {
			return domainauth.Session{}, err
		}
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeProvider, "oauth code exchange failed")
	}
	return c.sessionFrom(resp, domainauth.ProviderOAuth)
}

// GetCurrentSession implements ports.SessionClient. A valid access token is accepted as is;
// otherwise the refresh token is exchanged once and the rotated pair returned.
func (c *Client) GetCurrentSession(ctx context.Context, tokens domainauth.SessionTokens) (domainauth.Session, error) {
	if tokens.Empty() {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "no session tokens")
	}
	if tokens.AccessToken != "" {
		s, err := c.introspect(ctx, tokens)
		if err == nil {
			return s, nil
		}
		if !apperrors.IsTokenExpired(err) {
			return domainauth.Session{}, err
		}
		c.logger.DebugContext(ctx, "access token rejected, refreshing", "error", err)
	}
	if tokens.RefreshToken == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "access token expired and no refresh token")
	}
	return c.refresh(ctx, tokens.RefreshToken)
}

// RequestPasswordReset implements ports.SessionClient.
func (c *Client) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	var query url.Values
	if redirectURL != "" {
		query = url.Values{"redirect_to": {redirectURL}}
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/recover",
		query:  query,
		body:   map[string]string{"email": email},
	}, nil)
}

// SetNewPassword implements ports.SessionClient. Recovery links sometimes carry only a
// refresh token, in which case it is exchanged first.
func (c *Client) SetNewPassword(ctx context.Context, tokens domainauth.SessionTokens, newPassword string) error {
	access := tokens.AccessToken
	if access == "" {
		if tokens.RefreshToken == "" {
			return apperrors.New(apperrors.ErrCodeTokenExpired, "no recovery tokens")
		}
		s, err := c.refresh(ctx, tokens.RefreshToken)
		if err != nil {
			return err
		}
		access = s.Tokens.AccessToken
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/user",
		bearer: access,
		body:   map[string]string{"password": newPassword},
	}, nil)
}

// SignOut implements ports.SessionClient. Tokens the backend no longer knows count as signed out.
func (c *Client) SignOut(ctx context.Context, tokens domainauth.SessionTokens) error {
	if tokens.AccessToken == "" {
		return nil
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/logout",
		query:  url.Values{"scope": {"local"}},
		bearer: tokens.AccessToken,
	}, nil)
	if apperrors.IsTokenExpired(err) {
		return nil
	}
	return err
}

func (c *Client) introspect(ctx context.Context, tokens domainauth.SessionTokens) (domainauth.Session, error) {
	if c.verifier != nil {
		claims, err := c.verifier.Verify(ctx, tokens.AccessToken)
		if err != nil {
			return domainauth.Session{}, err
		}
		if claims.Subject == "" {
			return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "access token has no subject")
		}
		tokens.ExpiresAt = claims.ExpiresAt
		return domainauth.Session{
			UserID:    claims.Subject,
			Email:     claims.Email,
			IssuedAt:  c.now(),
			ExpiresAt: claims.ExpiresAt,
			IsActive:  true,
			Tokens:    tokens,
			Metadata:  c.metadata.Extract(claims.UserMetadata),
		}, nil
	}

	var u gotrueUser
	if err := c.do(ctx, request{method: http.MethodGet, path: "/user", bearer: tokens.AccessToken}, &u); err != nil {
		return domainauth.Session{}, err
	}
	if u.ID == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "backend returned no user")
	}
	return domainauth.Session{
		UserID:    u.ID,
		Email:     u.Email,
		IssuedAt:  c.now(),
		ExpiresAt: tokens.ExpiresAt,
		IsActive:  true,
		Tokens:    tokens,
		Metadata:  c.metadata.Extract(u.UserMetadata),
	}, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (domainauth.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &resp)
	if err != nil {
		if apperrors.IsValidation(err) {
			return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "refresh token rejected")
		}
		return domainauth.Session{}, err
	}
	return c.sessionFrom(resp, "")
}

func (c *Client) sessionFrom(resp tokenResponse, provider domainauth.Provider) (domainauth.Session, error) {
	if resp.AccessToken == "" || resp.User == nil || resp.User.ID == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeProvider, "identity backend returned an incomplete session")
	}
	now := c.now()
	var expires time.Time
	switch {
	case resp.ExpiresAt > 0:
		expires = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		expires = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return domainauth.Session{
		UserID:    resp.User.ID,
		Email:     resp.User.Email,
		Provider:  provider,
		IssuedAt:  now,
		ExpiresAt: expires,
		IsActive:  true,
		Tokens: domainauth.SessionTokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    expires,
		},
		Metadata: c.metadata.Extract(resp.User.UserMetadata),
	}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	bearer string
	body   any
}

// do sends r and decodes a 2xx JSON body into out. Transport failures are network errors;
// non-2xx responses go through mapAPIError.
func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", r.path, err)
		}
		body = bytes.NewReader(b)
	}
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "identity backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "read identity backend response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := mapAPIError(resp.StatusCode, data)
		c.logger.DebugContext(ctx, "identity backend error",
			"method", r.method, "path", r.path, "status", resp.StatusCode, "error", mapped)
		return mapped
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "decode identity backend response")
	}
	return nil
}
