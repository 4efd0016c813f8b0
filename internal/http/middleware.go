package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: string(apperrors.ErrCodeInternal),
						Message: apperrors.UserMessage(apperrors.Internal("panic")),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that detects browser requests vs API requests.
// Downstream code uses it to choose between redirects and JSON errors.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isBrowser := isBrowserRequest(r)
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if val := r.Context().Value(browserRequestKey{}); val != nil {
		if isBrowser, ok := val.(bool); ok {
			return isBrowser
		}
	}
	// Fallback to direct detection if middleware wasn't used
	return isBrowserRequest(r)
}

// isBrowserRequest determines if a request is from a browser based on:
// 1. Path prefix - API routes start with /api/
// 2. X-Requested-With - fetch/XHR callers identify themselves
// 3. Accept header - browsers typically accept text/html.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return false
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		// No Accept header, assume browser for non-API routes
		return true
	}
	return strings.Contains(accept, "text/html")
}

// routeGuard is the slice of service.AccessGuard the middleware uses.
type routeGuard interface {
	Requirement(path string) (domainauth.Requirement, bool)
	Check(required domainauth.Requirement, subject *domainauth.Subject) domainauth.AccessDecision
}

// accessResolver resolves the caller behind a session id.
type accessResolver interface {
	CurrentAccess(ctx context.Context, sessionID string) (*service.Access, error)
}

// RequireRouteConfig groups the dependencies of RequireRoute.
type RequireRouteConfig struct {
	Guard        routeGuard     // Required
	Access       accessResolver // Required
	CookieDomain string
	Logger       *slog.Logger
}

// RequireRoute enforces the route table before any protected handler runs. Unprotected paths
// pass through untouched. A denied browser request is redirected to the login page; an API
// request gets 401 (no live session) or 403 (insufficient role). On success the resolved
// caller is stored in the request context.
func RequireRoute(cfg RequireRouteConfig) func(http.Handler) http.Handler {
	if cfg.Guard == nil || cfg.Access == nil {
		panic("RequireRoute: guard and access resolver are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	jar := cookieJar{domain: cfg.CookieDomain}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required, protected := cfg.Guard.Requirement(r.URL.Path)
			if !protected {
				next.ServeHTTP(w, r)
				return
			}

			sessionID := sessionIDFromRequest(r)
			access, err := cfg.Access.CurrentAccess(r.Context(), sessionID)
			if err != nil {
				if !apperrors.IsTokenExpired(err) {
					logger.WarnContext(r.Context(), "resolve caller failed",
						"path", r.URL.Path, "code", apperrors.GetCode(err), "error", err)
					WriteAppError(w, err)
					return
				}
				if sessionID != "" {
					jar.clear(w, r, sessionCookieName)
				}
			}

			var subject *domainauth.Subject
			if access != nil {
				subject = &access.Subject
			}
			decision := cfg.Guard.Check(required, subject)
			if !decision.Allow {
				logger.InfoContext(r.Context(), "access denied",
					"path", r.URL.Path, "required", required, "reason", decision.Reason)
				denyAccess(w, r, decision)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetAccessInContext(r.Context(), access)))
		})
	}
}

func denyAccess(w http.ResponseWriter, r *http.Request, d domainauth.AccessDecision) {
	if IsBrowserRequest(r) {
		redirectToLogin(w, r, d.Reason)
		return
	}
	if d.Reason == domainauth.ReasonUnauthenticated {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Message: "Please sign in to continue.",
		})
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: string(domainauth.ReasonInsufficientRole),
		Message: "You do not have access to this page.",
	})
}

// redirectToLogin sends the browser to the login page, carrying the current path as
// redirect_uri and, for role denials, the reason.
func redirectToLogin(w http.ResponseWriter, r *http.Request, reason domainauth.Reason) {
	q := url.Values{}
	if p := safeRedirectPath(r.URL.RequestURI()); p != "" {
		q.Set("redirect_uri", p)
	}
	if reason == domainauth.ReasonInsufficientRole {
		q.Set("error", string(reason))
	}
	target := domainauth.PathLogin
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
