package ports

import (
	"context"
	"time"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

// ProfileStore is row-level CRUD over profiles keyed by identity id.
//
// GetByID returns not_found when no row exists and policy_recursion when the store's
// row-level policy fails to evaluate. Insert returns conflict when a row with the same
// id already exists.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*domainauth.Profile, error)
	FindByEmailPrefix(ctx context.Context, prefix string, limit int) ([]*domainauth.Profile, error)
	FindByEmails(ctx context.Context, emails []string) ([]*domainauth.Profile, error)
	List(ctx context.Context, opts domainauth.ListProfilesOptions) ([]*domainauth.Profile, error)
	Insert(ctx context.Context, p domainauth.NewProfile) (*domainauth.Profile, error)
	Update(ctx context.Context, id string, patch domainauth.ProfilePatch) (*domainauth.Profile, error)
	Delete(ctx context.Context, id string) (bool, error)
	CountByRole(ctx context.Context) (domainauth.RoleCounts, error)
}

// AuditEntry is one administrative change to a profile.
type AuditEntry struct {
	ID        int64           `json:"id"`
	ProfileID string          `json:"profile_id"`
	ActorID   string          `json:"actor_id"`
	Action    string          `json:"action"`
	OldRole   domainauth.Role `json:"old_role,omitempty"`
	NewRole   domainauth.Role `json:"new_role,omitempty"`
	At        time.Time       `json:"at"`
}

// Audit actions.
const (
	AuditActionRoleChange = "role_change"
	AuditActionDelete     = "delete"
)

// ProfileAdminStore performs audited administrative mutations. Each call writes the
// change and its audit row in one transaction.
type ProfileAdminStore interface {
	ChangeRole(ctx context.Context, actorID, id string, role domainauth.Role) (*domainauth.Profile, error)
	Remove(ctx context.Context, actorID, id string) (bool, error)
	ListAudit(ctx context.Context, profileID string, limit int) ([]AuditEntry, error)
}
