package httpx

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	"github.com/target/compliance-gate/internal/ports"
)

func TestAdminAPI_Gate(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.api(t, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_required", decodeBody[errorBody](t, rec).Error)

	vendor := f.signIn(t, vendorID, "vendor@example.com")
	rec = f.api(t, http.MethodGet, "/api/admin/users", nil, vendor)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient_role", decodeBody[errorBody](t, rec).Error)

	// API paths never redirect, even for an HTML-accepting client.
	rec = f.browse(t, "/api/admin/users/stats", vendor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	limited := f.signIn(t, limitedAdminID, "ops@example.com")
	rec = f.api(t, http.MethodGet, "/api/admin/users", nil, limited)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAPI_ListStatsSearch(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.signIn(t, superadminID, "boss@example.com")

	rec := f.api(t, http.MethodGet, "/api/admin/users?limit=2", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeBody[userListResponse](t, rec)
	assert.Len(t, list.Users, 2)
	assert.Equal(t, 2, list.Limit)

	rec = f.api(t, http.MethodGet, "/api/admin/users?role=superadmin", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[userListResponse](t, rec)
	require.Len(t, list.Users, 1)
	assert.Equal(t, superadminID, list.Users[0].ID)

	rec = f.api(t, http.MethodGet, "/api/admin/users?role=wizard", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.api(t, http.MethodGet, "/api/admin/users/stats", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domainauth.UserStats{Total: 3, Vendors: 1, Admins: 2}, decodeBody[domainauth.UserStats](t, rec))

	rec = f.api(t, http.MethodGet, "/api/admin/users/search?q=OPS", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeBody[map[string][]domainauth.Profile](t, rec)["users"]
	require.Len(t, found, 1)
	assert.Equal(t, limitedAdminID, found[0].ID)
}

func TestAdminAPI_ChangeRole(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.signIn(t, superadminID, "boss@example.com")

	rec := f.api(t, http.MethodPut, "/api/admin/users/"+vendorID+"/role", roleChangeRequest{Role: "Legal"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domainauth.RoleLegal, decodeBody[domainauth.Profile](t, rec).Role)

	rec = f.api(t, http.MethodGet, "/api/admin/users/"+vendorID+"/audit", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[map[string][]ports.AuditEntry](t, rec)["entries"]
	require.Len(t, entries, 1)
	assert.Equal(t, superadminID, entries[0].ActorID)
	assert.Equal(t, domainauth.RoleVendor, entries[0].OldRole)
	assert.Equal(t, domainauth.RoleLegal, entries[0].NewRole)

	rec = f.api(t, http.MethodPut, "/api/admin/users/"+superadminID+"/role", roleChangeRequest{Role: "vendor"}, admin)
	assert.Equal(t, http.StatusForbidden, rec.Code, "own role")

	rec = f.api(t, http.MethodPut, "/api/admin/users/"+vendorID+"/role", roleChangeRequest{Role: "root"}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", decodeBody[errorBody](t, rec).Field)
}

func TestAdminAPI_LimitedAdminRestrictions(t *testing.T) {
	f := newRouterFixture(t)
	limited := f.signIn(t, limitedAdminID, "ops@example.com")

	rec := f.api(t, http.MethodPut, "/api/admin/users/"+vendorID+"/role", roleChangeRequest{Role: "superadmin"}, limited)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.api(t, http.MethodPut, "/api/admin/users/"+superadminID+"/role", roleChangeRequest{Role: "vendor"}, limited)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.api(t, http.MethodDelete, "/api/admin/users/"+vendorID, nil, limited)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, err := f.profiles.GetByID(context.Background(), vendorID)
	assert.NoError(t, err)
}

func TestAdminAPI_Delete(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.signIn(t, superadminID, "boss@example.com")

	rec := f.api(t, http.MethodDelete, "/api/admin/users/"+limitedAdminID, nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.api(t, http.MethodDelete, "/api/admin/users/"+limitedAdminID, nil, admin)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[errorBody](t, rec).Error)

	rec = f.api(t, http.MethodDelete, "/api/admin/users/"+superadminID, nil, admin)
	assert.Equal(t, http.StatusForbidden, rec.Code, "own account")
}

func TestAdminAPI_DeleteRequiresCSRF(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.signIn(t, superadminID, "boss@example.com")

	req := newJSONRequest(t, http.MethodDelete, "/api/admin/users/"+vendorID, nil)
	req.AddCookie(admin)
	rec := serve(f.handler, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "csrf_failed", decodeBody[errorBody](t, rec).Error)
	_, err := f.profiles.GetByID(context.Background(), vendorID)
	assert.NoError(t, err)
}
