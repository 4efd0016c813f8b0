package service

import (
	"context"
	"log/slog"
	"strings"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

const (
	defaultSearchLimit = 10
	defaultAuditLimit  = 50
)

// UserAdminServiceOptions groups dependencies for UserAdminService.
type UserAdminServiceOptions struct {
	Profiles ports.ProfileStore      // Required
	Admin    ports.ProfileAdminStore // Required
	Logger   *slog.Logger            // Optional
}

// UserAdminService backs the admin user-management screens. Every method takes the acting
// subject and checks its permissions before touching the store.
type UserAdminService struct {
	profiles ports.ProfileStore
	admin    ports.ProfileAdminStore
	logger   *slog.Logger
}

// NewUserAdminService constructs a UserAdminService.
func NewUserAdminService(opts UserAdminServiceOptions) *UserAdminService {
	if opts.Profiles == nil {
		panic("ProfileStore is required")
	}
	if opts.Admin == nil {
		panic("ProfileAdminStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserAdminService{
		profiles: opts.Profiles,
		admin:    opts.Admin,
		logger:   logger.With("component", "user_admin"),
	}
}

// ListUsers pages through profiles.
func (s *UserAdminService) ListUsers(
	ctx context.Context,
	actor domainauth.Subject,
	opts domainauth.ListProfilesOptions,
) ([]*domainauth.Profile, error) {
	if err := requirePermission(actor, domainauth.PermViewAllData); err != nil {
		return nil, err
	}
	if opts.Role != domainauth.RoleNone && !opts.Role.Valid() {
		return nil, apperrors.ValidationField("role", "Unknown role filter.")
	}
	opts.Search = strings.TrimSpace(opts.Search)
	return s.profiles.List(ctx, opts)
}

// Stats returns the total, vendor and admin counts.
func (s *UserAdminService) Stats(ctx context.Context, actor domainauth.Subject) (domainauth.UserStats, error) {
	if err := requirePermission(actor, domainauth.PermViewAllData); err != nil {
		return domainauth.UserStats{}, err
	}
	counts, err := s.profiles.CountByRole(ctx)
	if err != nil {
		return domainauth.UserStats{}, err
	}
	return domainauth.StatsFromCounts(counts), nil
}

// Search looks profiles up by email prefix for the admin type-ahead.
func (s *UserAdminService) Search(
	ctx context.Context,
	actor domainauth.Subject,
	prefix string,
	limit int,
) ([]*domainauth.Profile, error) {
	if err := requirePermission(actor, domainauth.PermViewAllData); err != nil {
		return nil, err
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []*domainauth.Profile{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.profiles.FindByEmailPrefix(ctx, prefix, limit)
}

// ChangeRole sets a user's role. Admins cannot change their own role, and only a
// superadmin may grant superadmin or modify an existing superadmin.
func (s *UserAdminService) ChangeRole(
	ctx context.Context,
	actor domainauth.Subject,
	id string,
	role domainauth.Role,
) (*domainauth.Profile, error) {
	if err := requirePermission(actor, domainauth.PermManageUsers); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.ValidationField("role", "Unknown role.")
	}
	if id == actor.UserID {
		return nil, apperrors.Forbidden("You cannot change your own role.")
	}
	if actor.Role != domainauth.RoleSuperadmin {
		if role == domainauth.RoleSuperadmin {
			return nil, apperrors.Forbidden("Only a superadmin can grant the superadmin role.")
		}
		target, err := s.profiles.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if target.Role == domainauth.RoleSuperadmin {
			return nil, apperrors.Forbidden("Only a superadmin can modify a superadmin.")
		}
	}

	p, err := s.admin.ChangeRole(ctx, actor.UserID, id, role)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "role changed", "actor_id", actor.UserID, "user_id", id, "role", role)
	return p, nil
}

// DeleteUser removes a user's profile. The identity itself stays with the backend.
func (s *UserAdminService) DeleteUser(ctx context.Context, actor domainauth.Subject, id string) error {
	if err := requirePermission(actor, domainauth.PermDeleteUsers); err != nil {
		return err
	}
	if id == actor.UserID {
		return apperrors.Forbidden("You cannot delete your own account.")
	}
	removed, err := s.admin.Remove(ctx, actor.UserID, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NotFoundf("user %s not found", id)
	}
	s.logger.InfoContext(ctx, "user deleted", "actor_id", actor.UserID, "user_id", id)
	return nil
}

// Audit returns the most recent administrative changes to a profile.
func (s *UserAdminService) Audit(
	ctx context.Context,
	actor domainauth.Subject,
	profileID string,
	limit int,
) ([]ports.AuditEntry, error) {
	if err := requirePermission(actor, domainauth.PermViewAllData); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	return s.admin.ListAudit(ctx, profileID, limit)
}

func requirePermission(actor domainauth.Subject, perm domainauth.Permission) error {
	if actor.UserID == "" {
		return apperrors.Forbidden("Sign in required.")
	}
	if !actor.Role.HasPermission(perm) {
		return apperrors.Forbidden("You do not have permission to perform this action.")
	}
	return nil
}
