package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	fakes "github.com/target/compliance-gate/internal/mocks/auth"
	"github.com/target/compliance-gate/internal/service"
)

const (
	testCSRF       = "test-csrf-token"
	vendorID       = "8a4f1c3e-5b7d-4e2a-9c61-0d3b2f7a9e14"
	superadminID   = "1f2e3d4c-5b6a-4978-8695-a4b3c2d1e0f9"
	limitedAdminID = "2a3b4c5d-6e7f-4081-9203-b4c5d6e7f809"
	counselID      = "3c4d5e6f-7081-4293-a4b5-c6d7e8f90a1b"
	counselEmail   = "counsel@lawfirm.com"
)

type routerFixture struct {
	handler  http.Handler
	client   *fakes.FakeSessionClient
	sessions *fakes.MemorySessionStore
	profiles *fakes.MemoryProfileStore
}

func seededProfiles() []domainauth.Profile {
	return []domainauth.Profile{
		{ID: vendorID, Email: "vendor@example.com", Role: domainauth.RoleVendor},
		{ID: superadminID, Email: "boss@example.com", Role: domainauth.RoleSuperadmin},
		{ID: limitedAdminID, Email: "ops@example.com", Role: domainauth.RoleLimitedAdmin},
	}
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		client:   fakes.NewFakeSessionClient(),
		sessions: fakes.NewMemorySessionStore(),
		profiles: fakes.NewMemoryProfileStore(seededProfiles()...),
	}
	allowlist := domainauth.MustAllowlist(counselEmail)
	orch := service.NewSessionOrchestrator(service.SessionOrchestratorOptions{
		Deps: service.OrchestratorDeps{
			Client:      f.client,
			Sessions:    f.sessions,
			Preferences: fakes.NewMemoryPreferenceStore(),
			Profiles:    service.NewProfileResolver(service.ProfileResolverOptions{Profiles: f.profiles}),
			Classifier:  domainauth.Classifier{Allowlist: allowlist},
		},
		Config: service.OrchestratorConfig{
			CallTimeout:      time.Second,
			SessionTTL:       time.Hour,
			OAuthProviders:   []string{"azure", "google"},
			OAuthRedirectURL: "https://gate.example.com/auth/callback",
		},
	})
	f.handler = NewRouter(RouterServices{
		Sessions: orch,
		Guard:    service.NewAccessGuard(allowlist, nil),
		Admin:    service.NewUserAdminService(service.UserAdminServiceOptions{Profiles: f.profiles, Admin: f.profiles}),
	})
	return f
}

// api sends a JSON request carrying a valid CSRF pair.
func (f *routerFixture) api(
	t *testing.T,
	method, target string,
	body any,
	cookies ...*http.Cookie,
) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(DefaultCSRFHeaderName, testCSRF)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRF})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// browse sends a top-level browser navigation.
func (f *routerFixture) browse(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// signIn logs in as the given identity and returns the session cookie.
func (f *routerFixture) signIn(t *testing.T, id, email string) *http.Cookie {
	t.Helper()
	f.client.DefaultUserID = id
	f.client.DefaultUserEmail = email
	rec := f.api(t, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := findCookie(t, rec, sessionCookieName)
	require.NotNil(t, c)
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// newJSONRequest builds a JSON API request without any CSRF material.
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
