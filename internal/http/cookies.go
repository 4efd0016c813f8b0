package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

const (
	sessionCookieName  = "session_id"
	deviceCookieName   = "device_id"
	verifierCookieName = "oauth_verifier"
	redirectCookieName = "post_login_redirect"

	oauthCookieMaxAge  = 600 // 10 minutes
	deviceCookieMaxAge = 365 * 24 * 3600
)

// cookieJar writes the cookies the auth endpoints own. Every cookie is HttpOnly, SameSite=Lax
// and Secure whenever the request arrived over TLS (directly or via a proxy).
type cookieJar struct {
	domain string
}

type cookieParams struct {
	Name   string
	Value  string
	MaxAge int
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

func (c cookieJar) set(w http.ResponseWriter, r *http.Request, p cookieParams) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    p.Value,
		Path:     "/",
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   p.MaxAge,
	})
}

// clear expires a cookie. It mirrors the attributes used when setting so browsers match it.
func (c cookieJar) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// setSession writes the session cookie so it expires with the server-side session.
func (c cookieJar) setSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge <= 0 {
		c.clear(w, r, sessionCookieName)
		return
	}
	c.set(w, r, cookieParams{Name: sessionCookieName, Value: s.ID, MaxAge: maxAge})
}

// deviceID returns the caller's device id, issuing one when the cookie is missing or malformed.
func (c cookieJar) deviceID(w http.ResponseWriter, r *http.Request) string {
	if v := cookieValue(r, deviceCookieName); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	id := uuid.NewString()
	c.set(w, r, cookieParams{Name: deviceCookieName, Value: id, MaxAge: deviceCookieMaxAge})
	return id
}

// take returns a cookie's value and clears it.
func (c cookieJar) take(w http.ResponseWriter, r *http.Request, name string) string {
	v := cookieValue(r, name)
	if v != "" {
		c.clear(w, r, name)
	}
	return v
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func sessionIDFromRequest(r *http.Request) string {
	return cookieValue(r, sessionCookieName)
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	// "//host" and "/\host" are treated as scheme-relative by browsers.
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return ""
	}
	return candidate
}
