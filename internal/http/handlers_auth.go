package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/service"
)

// SessionFlows is the slice of service.SessionOrchestrator the auth endpoints drive.
type SessionFlows interface {
	Login(ctx context.Context, in service.LoginInput) service.Outcome
	Signup(ctx context.Context, in service.SignupInput) service.Outcome
	BeginOAuth(ctx context.Context, provider string) service.Outcome
	CompleteOAuth(ctx context.Context, in service.OAuthCallbackInput) service.Outcome
	RequestPasswordReset(ctx context.Context, email string) service.Outcome
	CompletePasswordReset(ctx context.Context, in service.ResetCompletionInput) service.Outcome
	Logout(ctx context.Context, sessionID string) error
	CurrentAccess(ctx context.Context, sessionID string) (*service.Access, error)
	RememberedEmail(ctx context.Context, deviceID string) string
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          SessionFlows
	Guard        routeGuard // Optional: vets post-login redirect targets
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) cookies() cookieJar { return cookieJar{domain: h.CookieDomain} }

// outcomeResponse is the JSON body of every flow endpoint.
type outcomeResponse struct {
	State      service.FlowState   `json:"state"`
	RedirectTo string              `json:"redirect_to,omitempty"`
	Role       domainauth.Role     `json:"role,omitempty"`
	Profile    *domainauth.Profile `json:"profile,omitempty"`
}

// writeFailure renders a failed outcome. The message is the stable text for the error code.
func (h *AuthHandlers) writeFailure(w http.ResponseWriter, r *http.Request, out service.Outcome) {
	h.logger().InfoContext(r.Context(), "auth flow failed",
		"flow", out.Flow, "code", apperrors.GetCode(out.Err))
	WriteAppError(w, out.Err)
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RememberMe  bool   `json:"remember_me"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Login handles password sign-in.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	jar := h.cookies()
	out := h.Svc.Login(r.Context(), service.LoginInput{
		Email:             req.Email,
		Password:          req.Password,
		RememberMe:        req.RememberMe,
		DeviceID:          jar.deviceID(w, r),
		PreviousSessionID: sessionIDFromRequest(r),
	})
	if out.Failed() {
		h.writeFailure(w, r, out)
		return
	}
	jar.setSession(w, r, *out.Session)
	WriteJSON(w, http.StatusOK, outcomeResponse{
		State:      out.State,
		RedirectTo: h.postLoginTarget(out, req.RedirectURI),
		Role:       out.Role,
		Profile:    out.Profile,
	})
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Company         string `json:"company,omitempty"`
}

// Signup registers a new account. The caller is never signed in; the response points at
// the verify-email page.
// POST /auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	out := h.Svc.Signup(r.Context(), service.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Metadata: domainauth.UserMetadata{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Company:   req.Company,
		},
	})
	if out.Failed() {
		h.writeFailure(w, r, out)
		return
	}
	WriteJSON(w, http.StatusAccepted, outcomeResponse{State: out.State, RedirectTo: out.RedirectTo})
}

// BeginOAuth redirects the browser to the identity provider. The PKCE verifier and the
// post-login redirect are parked in short-lived cookies until the callback.
// GET /auth/oauth/{provider}?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	out := h.Svc.BeginOAuth(r.Context(), r.PathValue("provider"))
	if out.Failed() {
		h.logger().InfoContext(r.Context(), "oauth start failed", "code", apperrors.GetCode(out.Err))
		if IsBrowserRequest(r) {
			loginWithError(w, r, out.Err)
			return
		}
		WriteAppError(w, out.Err)
		return
	}

	jar := h.cookies()
	jar.set(w, r, cookieParams{Name: verifierCookieName, Value: out.OAuth.Verifier, MaxAge: oauthCookieMaxAge})
	if p := safeRedirectPath(r.URL.Query().Get("redirect_uri")); p != "" {
		jar.set(w, r, cookieParams{Name: redirectCookieName, Value: p, MaxAge: oauthCookieMaxAge})
	}
	http.Redirect(w, r, out.RedirectTo, http.StatusFound)
}

// Callback completes the OAuth flow and lands the browser on its role's home.
// GET /auth/callback?code=...
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	jar := h.cookies()
	verifier := jar.take(w, r, verifierCookieName)
	requested := jar.take(w, r, redirectCookieName)

	out := h.Svc.CompleteOAuth(r.Context(), service.OAuthCallbackInput{
		Params:            r.URL.Query(),
		Verifier:          verifier,
		PreviousSessionID: sessionIDFromRequest(r),
	})
	if out.Failed() {
		h.logger().InfoContext(r.Context(), "oauth callback failed", "code", apperrors.GetCode(out.Err))
		loginWithError(w, r, out.Err)
		return
	}
	jar.setSession(w, r, *out.Session)
	http.Redirect(w, r, h.postLoginTarget(out, requested), http.StatusSeeOther)
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset sends a reset link. The response is the same whether or not the
// address has an account.
// POST /auth/password/reset.
func (h *AuthHandlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	out := h.Svc.RequestPasswordReset(r.Context(), req.Email)
	if out.Failed() {
		h.writeFailure(w, r, out)
		return
	}
	WriteJSON(w, http.StatusAccepted, outcomeResponse{State: out.State})
}

type passwordUpdateRequest struct {
	Type            string `json:"type"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UpdatePassword completes a reset using the recovery context from the emailed link.
// POST /auth/password/update.
func (h *AuthHandlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordUpdateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	out := h.Svc.CompletePasswordReset(r.Context(), service.ResetCompletionInput{
		Recovery: service.RecoveryContext{
			Type:         req.Type,
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
		},
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if out.Failed() {
		h.writeFailure(w, r, out)
		return
	}
	WriteJSON(w, http.StatusOK, outcomeResponse{State: out.State, RedirectTo: out.RedirectTo})
}

// Logout ends the session locally and at the identity backend.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context(), sessionIDFromRequest(r)); err != nil {
		// The cookie is cleared regardless; a stale server-side entry expires on its own.
		h.logger().ErrorContext(r.Context(), "logout failed", "error", err)
	}
	h.cookies().clear(w, r, sessionCookieName)
	WriteJSON(w, http.StatusOK, outcomeResponse{State: service.StateDone, RedirectTo: domainauth.PathLogin})
}

type statusResponse struct {
	Authenticated   bool                `json:"authenticated"`
	User            *statusUser         `json:"user,omitempty"`
	Profile         *domainauth.Profile `json:"profile,omitempty"`
	Home            string              `json:"home,omitempty"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
	RememberedEmail string              `json:"remembered_email,omitempty"`
	CSRFToken       string              `json:"csrf_token,omitempty"`
}

type statusUser struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Role  domainauth.Role `json:"role"`
}

// Status reports the caller's session. Anonymous callers get the email remembered for
// their device, if any.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{CSRFToken: GetCSRFToken(r)}
	sessionID := sessionIDFromRequest(r)
	access, err := h.Svc.CurrentAccess(r.Context(), sessionID)
	switch {
	case err == nil:
		expires := access.Session.ExpiresAt
		resp.Authenticated = true
		resp.User = &statusUser{ID: access.Subject.UserID, Email: access.Subject.Email, Role: access.Subject.Role}
		resp.Profile = access.Profile
		resp.Home = domainauth.HomeFor(access.Subject.Role)
		resp.ExpiresAt = &expires
	case apperrors.IsTokenExpired(err):
		if sessionID != "" {
			h.cookies().clear(w, r, sessionCookieName)
		}
		if v := cookieValue(r, deviceCookieName); v != "" {
			resp.RememberedEmail = h.Svc.RememberedEmail(r.Context(), v)
		}
	default:
		h.logger().WarnContext(r.Context(), "session status failed", "code", apperrors.GetCode(err), "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Redirect sends an authenticated browser to its role's home. Mounted behind RequireRoute.
// GET /auth/redirect.
func (h *AuthHandlers) Redirect(w http.ResponseWriter, r *http.Request) {
	subject := SubjectFromContext(r.Context())
	if subject == nil {
		redirectToLogin(w, r, domainauth.ReasonUnauthenticated)
		return
	}
	http.Redirect(w, r, domainauth.HomeFor(subject.Role), http.StatusSeeOther)
}

type accessResponse struct {
	Path      string `json:"path"`
	Protected bool   `json:"protected"`
	domainauth.AccessDecision
	Redirect string `json:"redirect,omitempty"`
}

// Access lets the frontend ask whether the caller may open a page before rendering it.
// GET /auth/access?path=/legal/dashboard.
func (h *AuthHandlers) Access(w http.ResponseWriter, r *http.Request) {
	path := safeRedirectPath(r.URL.Query().Get("path"))
	if path == "" {
		WriteAppError(w, apperrors.ValidationField("path", "A relative path is required."))
		return
	}
	if h.Guard == nil {
		WriteAppError(w, apperrors.Internal("access guard not configured"))
		return
	}

	var subject *domainauth.Subject
	access, err := h.Svc.CurrentAccess(r.Context(), sessionIDFromRequest(r))
	switch {
	case err == nil:
		subject = &access.Subject
	case !apperrors.IsTokenExpired(err):
		WriteAppError(w, err)
		return
	}

	required, protected := h.Guard.Requirement(path)
	resp := accessResponse{
		Path:           path,
		Protected:      protected,
		AccessDecision: domainauth.AccessDecision{Allow: true, Reason: domainauth.ReasonOK},
	}
	if protected {
		resp.AccessDecision = h.Guard.Check(required, subject)
	}
	if !resp.Allow {
		resp.Redirect = domainauth.PathLogin
	}
	WriteJSON(w, http.StatusOK, resp)
}

// postLoginTarget honours a requested same-origin path only when the signed-in role may
// open it; otherwise the role's home wins.
func (h *AuthHandlers) postLoginTarget(out service.Outcome, requested string) string {
	p := safeRedirectPath(requested)
	if p == "" || h.Guard == nil || out.Session == nil {
		return out.RedirectTo
	}
	u, err := url.Parse(p)
	if err != nil {
		return out.RedirectTo
	}
	required, protected := h.Guard.Requirement(u.Path)
	if !protected {
		return out.RedirectTo
	}
	subject := &domainauth.Subject{UserID: out.Session.UserID, Email: out.Session.Email, Role: out.Role}
	if !h.Guard.Check(required, subject).Allow {
		return out.RedirectTo
	}
	return p
}

// loginWithError sends the browser back to the login page with a stable error code.
func loginWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	q := url.Values{"error": {string(code)}}
	http.Redirect(w, r, domainauth.PathLogin+"?"+q.Encode(), http.StatusSeeOther)
}
