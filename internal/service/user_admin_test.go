package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/mocks"
	"github.com/target/compliance-gate/internal/ports"
)

const (
	adminID  = "1b2c3d4e-0000-4000-8000-000000000001"
	targetID = "1b2c3d4e-0000-4000-8000-000000000002"
)

var (
	superadmin   = domainauth.Subject{UserID: adminID, Email: "root@example.com", Role: domainauth.RoleSuperadmin}
	limitedAdmin = domainauth.Subject{UserID: adminID, Email: "ops@example.com", Role: domainauth.RoleLimitedAdmin}
	vendorActor  = domainauth.Subject{UserID: adminID, Email: "v@example.com", Role: domainauth.RoleVendor}
)

func newUserAdmin(t *testing.T) (*UserAdminService, *mocks.MockProfileStore, *mocks.MockProfileAdminStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	profiles := mocks.NewMockProfileStore(ctrl)
	admin := mocks.NewMockProfileAdminStore(ctrl)
	return NewUserAdminService(UserAdminServiceOptions{Profiles: profiles, Admin: admin}), profiles, admin
}

func TestNewUserAdminService_RequiredDependencies(t *testing.T) {
	assert.Panics(t, func() { NewUserAdminService(UserAdminServiceOptions{}) })
}

func TestUserAdmin_ChangeRole(t *testing.T) {
	ctx := context.Background()

	t.Run("superadmin grants superadmin", func(t *testing.T) {
		svc, _, admin := newUserAdmin(t)
		want := &domainauth.Profile{ID: targetID, Role: domainauth.RoleSuperadmin}
		admin.EXPECT().ChangeRole(ctx, adminID, targetID, domainauth.RoleSuperadmin).Return(want, nil)

		got, err := svc.ChangeRole(ctx, superadmin, targetID, domainauth.RoleSuperadmin)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("self change is forbidden", func(t *testing.T) {
		svc, _, _ := newUserAdmin(t)
		_, err := svc.ChangeRole(ctx, superadmin, adminID, domainauth.RoleVendor)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden))
	})

	t.Run("limited admin cannot grant superadmin", func(t *testing.T) {
		svc, _, _ := newUserAdmin(t)
		_, err := svc.ChangeRole(ctx, limitedAdmin, targetID, domainauth.RoleSuperadmin)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden))
	})

	t.Run("limited admin cannot modify superadmin", func(t *testing.T) {
		svc, profiles, _ := newUserAdmin(t)
		profiles.EXPECT().GetByID(ctx, targetID).
			Return(&domainauth.Profile{ID: targetID, Role: domainauth.RoleSuperadmin}, nil)

		_, err := svc.ChangeRole(ctx, limitedAdmin, targetID, domainauth.RoleVendor)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden))
	})

	t.Run("limited admin promotes vendor to legal", func(t *testing.T) {
		svc, profiles, admin := newUserAdmin(t)
		profiles.EXPECT().GetByID(ctx, targetID).
			Return(&domainauth.Profile{ID: targetID, Role: domainauth.RoleVendor}, nil)
		admin.EXPECT().ChangeRole(ctx, adminID, targetID, domainauth.RoleLegal).
			Return(&domainauth.Profile{ID: targetID, Role: domainauth.RoleLegal}, nil)

		got, err := svc.ChangeRole(ctx, limitedAdmin, targetID, domainauth.RoleLegal)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleLegal, got.Role)
	})

	t.Run("vendor lacks permission", func(t *testing.T) {
		svc, _, _ := newUserAdmin(t)
		_, err := svc.ChangeRole(ctx, vendorActor, targetID, domainauth.RoleLegal)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden))
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _, _ := newUserAdmin(t)
		_, err := svc.ChangeRole(ctx, superadmin, targetID, domainauth.Role("owner"))
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestUserAdmin_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("superadmin deletes", func(t *testing.T) {
		svc, _, admin := newUserAdmin(t)
		admin.EXPECT().Remove(ctx, adminID, targetID).Return(true, nil)
		require.NoError(t, svc.DeleteUser(ctx, superadmin, targetID))
	})

	t.Run("missing user", func(t *testing.T) {
		svc, _, admin := newUserAdmin(t)
		admin.EXPECT().Remove(ctx, adminID, targetID).Return(false, nil)
		assert.True(t, apperrors.IsNotFound(svc.DeleteUser(ctx, superadmin, targetID)))
	})

	t.Run("limited admin cannot delete", func(t *testing.T) {
		svc, _, _ := newUserAdmin(t)
		assert.True(t, apperrors.Is(svc.DeleteUser(ctx, limitedAdmin, targetID), apperrors.ErrCodeForbidden))
	})

	t.Run("self delete is forbidden", func(t *testing.T) {
		svc, _, _ := newUserAdmin(t)
		assert.True(t, apperrors.Is(svc.DeleteUser(ctx, superadmin, adminID), apperrors.ErrCodeForbidden))
	})
}

func TestUserAdmin_Stats(t *testing.T) {
	ctx := context.Background()
	svc, profiles, _ := newUserAdmin(t)
	profiles.EXPECT().CountByRole(ctx).Return(domainauth.RoleCounts{
		domainauth.RoleVendor:     7,
		domainauth.RoleLegal:      2,
		domainauth.RoleSuperadmin: 1,
	}, nil)

	st, err := svc.Stats(ctx, limitedAdmin)
	require.NoError(t, err)
	assert.Equal(t, domainauth.UserStats{Total: 10, Vendors: 7, Admins: 3}, st)

	_, err = svc.Stats(ctx, vendorActor)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden))
}

func TestUserAdmin_ListAndSearch(t *testing.T) {
	ctx := context.Background()
	svc, profiles, admin := newUserAdmin(t)

	profiles.EXPECT().List(ctx, domainauth.ListProfilesOptions{Role: domainauth.RoleLegal, Search: "acme", Limit: 20}).
		Return([]*domainauth.Profile{{ID: targetID}}, nil)
	list, err := svc.ListUsers(ctx, superadmin, domainauth.ListProfilesOptions{
		Role: domainauth.RoleLegal, Search: "  acme ", Limit: 20,
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListUsers(ctx, superadmin, domainauth.ListProfilesOptions{Role: "owner"})
	assert.True(t, apperrors.IsValidation(err))

	profiles.EXPECT().FindByEmailPrefix(ctx, "ann", defaultSearchLimit).Return([]*domainauth.Profile{}, nil)
	_, err = svc.Search(ctx, superadmin, " Ann ", 0)
	require.NoError(t, err)

	empty, err := svc.Search(ctx, superadmin, "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	admin.EXPECT().ListAudit(ctx, targetID, defaultAuditLimit).
		Return([]ports.AuditEntry{{ProfileID: targetID, Action: ports.AuditActionRoleChange}}, nil)
	entries, err := svc.Audit(ctx, superadmin, targetID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
