package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultCSRFCookieName  = "csrf_token"
	DefaultCSRFHeaderName  = "X-Csrf-Token"
	DefaultCSRFTokenLength = 32

	csrfCookieMaxAge = 12 * 3600
)

// CSRFConfig configures CSRFProtection. Zero values take the Default* constants;
// FormFieldName falls back to the cookie name.
type CSRFConfig struct {
	CookieName    string
	HeaderName    string
	FormFieldName string
	CookieDomain  string
	TokenLength   int
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = DefaultCSRFCookieName
	}
	if c.HeaderName == "" {
		c.HeaderName = DefaultCSRFHeaderName
	}
	if c.FormFieldName == "" {
		c.FormFieldName = c.CookieName
	}
	if c.TokenLength <= 0 {
		c.TokenLength = DefaultCSRFTokenLength
	}
	return c
}

// CSRFProtection guards the auth and admin endpoints with a double-submit cookie.
// Every response carries a readable csrf_token cookie (issued once per browser) and
// GET /auth/status echoes the same value. Unsafe methods must send it back in the
// X-Csrf-Token header; url-encoded and multipart posts may use the form field instead.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := csrfGuard{cfg: cfg.withDefaults()}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := g.ensureToken(w, r)
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: "csrf_unavailable",
					Message: "Please try again.",
				})
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))

			if isUnsafeMethod(r.Method) && !g.submitted(r, token) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "csrf_failed",
					Message: "Your form expired. Reload the page and try again.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type csrfGuard struct {
	cfg CSRFConfig
}

// ensureToken returns the caller's token, minting and setting the cookie when absent.
// ok is false only when the random source fails; no fallback token is issued.
func (g csrfGuard) ensureToken(w http.ResponseWriter, r *http.Request) (token string, ok bool) {
	if token = cookieValue(r, g.cfg.CookieName); token != "" {
		return token, true
	}
	token, err := newCSRFToken(g.cfg.TokenLength)
	if err != nil {
		return "", false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.cfg.CookieDomain,
		HttpOnly: false, // the frontend echoes it in the header
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   csrfCookieMaxAge,
	})
	return token, true
}

// submitted reports whether the request echoes token. A present header is
// authoritative; the form field is only consulted for form content types.
func (g csrfGuard) submitted(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	if h := r.Header.Get(g.cfg.HeaderName); h != "" {
		return tokensEqual(h, token)
	}
	if !isFormContent(r.Header.Get("Content-Type")) {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	v := r.FormValue(g.cfg.FormFieldName)
	return v != "" && tokensEqual(v, token)
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func isFormContent(contentType string) bool {
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}

func newCSRFToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read csrf entropy: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// isForwardedHTTPS reports whether any X-Forwarded-Proto hop was https.
func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

type csrfTokenKey struct{}

// GetCSRFToken returns the token CSRFProtection attached to the request, or "".
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
