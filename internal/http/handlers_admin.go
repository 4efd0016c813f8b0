package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

const (
	defaultUserPageSize = 25
	maxUserPageSize     = 200
	maxAuditPageSize    = 200
)

// UserAdmin is the slice of service.UserAdminService the admin API uses.
type UserAdmin interface {
	ListUsers(ctx context.Context, actor domainauth.Subject, opts domainauth.ListProfilesOptions) ([]*domainauth.Profile, error)
	Stats(ctx context.Context, actor domainauth.Subject) (domainauth.UserStats, error)
	Search(ctx context.Context, actor domainauth.Subject, prefix string, limit int) ([]*domainauth.Profile, error)
	ChangeRole(ctx context.Context, actor domainauth.Subject, id string, role domainauth.Role) (*domainauth.Profile, error)
	DeleteUser(ctx context.Context, actor domainauth.Subject, id string) error
	Audit(ctx context.Context, actor domainauth.Subject, profileID string, limit int) ([]ports.AuditEntry, error)
}

// AdminHandlers serves the user-management JSON API. Routes are mounted behind RequireRoute,
// which places the acting subject in the request context; permission checks live in the service.
type AdminHandlers struct {
	Svc    UserAdmin
	Logger *slog.Logger
}

func (h *AdminHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// actor returns the acting subject or writes a 401 and returns false.
func (h *AdminHandlers) actor(w http.ResponseWriter, r *http.Request) (domainauth.Subject, bool) {
	s := SubjectFromContext(r.Context())
	if s == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Message: "Please sign in to continue.",
		})
		return domainauth.Subject{}, false
	}
	return *s, true
}

func (h *AdminHandlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "admin request failed", "op", op, "error", err)
	}
	WriteAppError(w, err)
}

type userListResponse struct {
	Users  []*domainauth.Profile `json:"users"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// List pages through users.
// GET /api/admin/users?role=&search=&limit=&offset=.
func (h *AdminHandlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, offset := ParseLimitOffset(r, defaultUserPageSize, maxUserPageSize)
	q := r.URL.Query()
	users, err := h.Svc.ListUsers(r.Context(), actor, domainauth.ListProfilesOptions{
		Role:   domainauth.Role(strings.ToLower(strings.TrimSpace(q.Get("role")))),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	if users == nil {
		users = []*domainauth.Profile{}
	}
	WriteJSON(w, http.StatusOK, userListResponse{Users: users, Limit: limit, Offset: offset})
}

// Stats returns the user counts shown on the admin dashboard.
// GET /api/admin/users/stats.
func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	stats, err := h.Svc.Stats(r.Context(), actor)
	if err != nil {
		h.fail(w, r, "stats", err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Search is the email type-ahead.
// GET /api/admin/users/search?q=&limit=.
func (h *AdminHandlers) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, _ := ParseLimitOffset(r, 10, 50)
	users, err := h.Svc.Search(r.Context(), actor, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.fail(w, r, "search", err)
		return
	}
	if users == nil {
		users = []*domainauth.Profile{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type roleChangeRequest struct {
	Role string `json:"role"`
}

// ChangeRole sets a user's role.
// PUT /api/admin/users/{id}/role.
func (h *AdminHandlers) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req roleChangeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	role := domainauth.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		WriteAppError(w, apperrors.ValidationField("role", "Unknown role."))
		return
	}
	p, err := h.Svc.ChangeRole(r.Context(), actor, r.PathValue("id"), role)
	if err != nil {
		h.fail(w, r, "change_role", err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Delete removes a user's profile.
// DELETE /api/admin/users/{id}.
func (h *AdminHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteUser(r.Context(), actor, r.PathValue("id")); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit lists recent administrative changes to a user.
// GET /api/admin/users/{id}/audit?limit=.
func (h *AdminHandlers) Audit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, _ := ParseLimitOffset(r, 50, maxAuditPageSize)
	entries, err := h.Svc.Audit(r.Context(), actor, r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, r, "audit", err)
		return
	}
	if entries == nil {
		entries = []ports.AuditEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
