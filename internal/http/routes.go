package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/compliance-gate/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions     SessionFlows         // Required
	Guard        *service.AccessGuard // Required
	Admin        UserAdmin            // Optional: admin user API
	HealthChecks map[string]HealthCheck
	CookieDomain string
	Logger       *slog.Logger // Optional
}

// NewRouter creates the HTTP router. Middleware order, outermost first:
// BrowserDetection -> CSRFProtection -> RequireRoute -> mux.
func NewRouter(services RouterServices) http.Handler {
	if services.Sessions == nil {
		panic("NewRouter: Sessions is required")
	}
	if services.Guard == nil {
		panic("NewRouter: Guard is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.HealthChecks, logger))

	registerAuthRoutes(mux, &AuthHandlers{
		Svc:          services.Sessions,
		Guard:        services.Guard,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	})
	if services.Admin != nil {
		registerAdminRoutes(mux, &AdminHandlers{Svc: services.Admin, Logger: logger})
	}
	mux.HandleFunc("/", notFoundHandler)

	var h http.Handler = mux
	h = RequireRoute(RequireRouteConfig{
		Guard:        services.Guard,
		Access:       services.Sessions,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	})(h)
	h = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})(h)
	h = BrowserDetection()(h)
	return h
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.HandleFunc("GET /auth/oauth/{provider}", h.BeginOAuth)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/password/reset", h.RequestPasswordReset)
	mux.HandleFunc("POST /auth/password/update", h.UpdatePassword)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /auth/access", h.Access)
	mux.HandleFunc("GET /auth/redirect", h.Redirect)
}

func registerAdminRoutes(mux *http.ServeMux, h *AdminHandlers) {
	mux.HandleFunc("GET /api/admin/users", h.List)
	mux.HandleFunc("GET /api/admin/users/stats", h.Stats)
	mux.HandleFunc("GET /api/admin/users/search", h.Search)
	mux.HandleFunc("PUT /api/admin/users/{id}/role", h.ChangeRole)
	mux.HandleFunc("DELETE /api/admin/users/{id}", h.Delete)
	mux.HandleFunc("GET /api/admin/users/{id}/audit", h.Audit)
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Message: "Not found."})
}
