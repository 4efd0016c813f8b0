package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/compliance-gate/internal/data/pgxutil"
	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

const (
	profileColumns = `id::text, email, role, coalesce(first_name, ''), coalesce(last_name, ''), ` +
		`coalesce(company, ''), created_at, updated_at`

	profileGetByIDQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profileByEmailPrefixQuery = `SELECT ` + profileColumns + ` FROM profiles
		WHERE lower(email) LIKE $1 ESCAPE '\' ORDER BY email LIMIT $2`

	profileByEmailsQuery = `SELECT ` + profileColumns + ` FROM profiles
		WHERE lower(email) = ANY($1) ORDER BY email`

	profileInsertQuery = `INSERT INTO profiles (id, email, role, first_name, last_name, company, created_at, updated_at)
		VALUES ($1, $2, $3, nullif($4, ''), nullif($5, ''), nullif($6, ''), $7, $7)
		RETURNING ` + profileColumns

	profileDeleteQuery = `DELETE FROM profiles WHERE id = $1`

	profileCountByRoleQuery = `SELECT role, count(*) FROM profiles GROUP BY role`

	profileLockRoleQuery = `SELECT role FROM profiles WHERE id = $1 FOR UPDATE`

	profileSetRoleQuery = `UPDATE profiles SET role = $2, updated_at = $3 WHERE id = $1 RETURNING ` + profileColumns

	auditInsertQuery = `INSERT INTO profile_audit (profile_id, actor_id, action, old_role, new_role, at)
		VALUES ($1, $2, $3, $4, nullif($5, ''), $6)`

	auditListQuery = `SELECT id, profile_id::text, coalesce(actor_id::text, ''), action, coalesce(old_role, ''),
		coalesce(new_role, ''), at FROM profile_audit WHERE profile_id = $1 ORDER BY at DESC, id DESC LIMIT $2`

	defaultProfileListLimit = 50
	maxProfileListLimit     = 500
)

// ProfileRepo provides database operations for profiles and their audit trail.
type ProfileRepo struct {
	DB    pgxutil.DB
	clock Clock
}

// NewProfileRepo creates a new ProfileRepo with the real clock.
func NewProfileRepo(db pgxutil.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, clock: systemClock{}}
}

// NewProfileRepoWithClock creates a ProfileRepo that stamps rows with clock.
func NewProfileRepoWithClock(db pgxutil.DB, clock Clock) *ProfileRepo {
	return &ProfileRepo{DB: db, clock: clock}
}

// GetByID retrieves a profile by identity id.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domainauth.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("profile %q not found", id)
	}
	p, err := scanProfile(r.DB.QueryRow(ctx, profileGetByIDQuery, id))
	if err != nil {
		return nil, mapProfileErr(err, "get profile")
	}
	return p, nil
}

// FindByEmailPrefix returns profiles whose email starts with prefix (case-insensitive).
func (r *ProfileRepo) FindByEmailPrefix(ctx context.Context, prefix string, limit int) ([]*domainauth.Profile, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, apperrors.ValidationField("prefix", "Email prefix is required.")
	}
	rows, err := r.DB.Query(ctx, profileByEmailPrefixQuery, pgxutil.EscapeLike(prefix)+"%", clampLimit(limit))
	if err != nil {
		return nil, mapProfileErr(err, "find profiles by email prefix")
	}
	return collectProfiles(rows, "find profiles by email prefix")
}

// FindByEmails returns the profiles matching any of emails after normalisation.
func (r *ProfileRepo) FindByEmails(ctx context.Context, emails []string) ([]*domainauth.Profile, error) {
	norm := make([]string, 0, len(emails))
	for _, e := range emails {
		if n := domainauth.NormalizeEmail(e); n != "" {
			norm = append(norm, n)
		}
	}
	if len(norm) == 0 {
		return []*domainauth.Profile{}, nil
	}
	rows, err := r.DB.Query(ctx, profileByEmailsQuery, norm)
	if err != nil {
		return nil, mapProfileErr(err, "find profiles by email")
	}
	return collectProfiles(rows, "find profiles by email")
}

// List returns profiles filtered by role and search text, newest first.
func (r *ProfileRepo) List(ctx context.Context, opts domainauth.ListProfilesOptions) ([]*domainauth.Profile, error) {
	query, args := buildProfileListQuery(opts)
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, mapProfileErr(err, "list profiles")
	}
	return collectProfiles(rows, "list profiles")
}

func buildProfileListQuery(opts domainauth.ListProfilesOptions) (string, []any) {
	var (
		where []string
		args  []any
	)
	if opts.Role != domainauth.RoleNone {
		args = append(args, string(opts.Role))
		where = append(where, "role = $"+strconv.Itoa(len(args)))
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		args = append(args, "%"+pgxutil.EscapeLike(strings.ToLower(s))+"%")
		n := "$" + strconv.Itoa(len(args))
		where = append(where, "(lower(email) LIKE "+n+" OR lower(coalesce(first_name, '')) LIKE "+n+
			" OR lower(coalesce(last_name, '')) LIKE "+n+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + profileColumns + " FROM profiles")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, clampLimit(opts.Limit), max(opts.Offset, 0))
	b.WriteString(" ORDER BY created_at DESC, id LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args)))
	return b.String(), args
}

// Insert creates a profile. A duplicate id is reported as a conflict.
func (r *ProfileRepo) Insert(ctx context.Context, in domainauth.NewProfile) (*domainauth.Profile, error) {
	if _, err := uuid.Parse(in.ID); err != nil {
		return nil, apperrors.ValidationField("id", "Profile id must be a UUID.")
	}
	role := in.Role
	if !role.Valid() {
		role = domainauth.RoleVendor
	}
	now := r.clock.Now()
	p, err := scanProfile(r.DB.QueryRow(ctx, profileInsertQuery,
		in.ID,
		domainauth.NormalizeEmail(in.Email),
		string(role),
		strings.TrimSpace(in.FirstName),
		strings.TrimSpace(in.LastName),
		strings.TrimSpace(in.Company),
		now,
	))
	if err != nil {
		return nil, mapProfileErr(err, "insert profile")
	}
	return p, nil
}

// Update applies a patch. An empty patch returns the current row unchanged.
func (r *ProfileRepo) Update(ctx context.Context, id string, patch domainauth.ProfilePatch) (*domainauth.Profile, error) {
	setClause, args := buildProfileUpdateClause(patch)
	if setClause == "" {
		return r.GetByID(ctx, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("profile %q not found", id)
	}
	args = append(args, r.clock.Now(), id)
	query := "UPDATE profiles SET " + setClause + ", updated_at = $" + strconv.Itoa(len(args)-1) +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + profileColumns
	p, err := scanProfile(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapProfileErr(err, "update profile")
	}
	return p, nil
}

func buildProfileUpdateClause(patch domainauth.ProfilePatch) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	if patch.FirstName != nil {
		add("first_name", strings.TrimSpace(*patch.FirstName))
	}
	if patch.LastName != nil {
		add("last_name", strings.TrimSpace(*patch.LastName))
	}
	if patch.Company != nil {
		add("company", strings.TrimSpace(*patch.Company))
	}
	return strings.Join(sets, ", "), args
}

// Delete removes a profile row. It reports whether a row was deleted.
func (r *ProfileRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.DB.Exec(ctx, profileDeleteQuery, id)
	if err != nil {
		return false, mapProfileErr(err, "delete profile")
	}
	return tag.RowsAffected() > 0, nil
}

// CountByRole tallies profiles per stored role.
func (r *ProfileRepo) CountByRole(ctx context.Context) (domainauth.RoleCounts, error) {
	rows, err := r.DB.Query(ctx, profileCountByRoleQuery)
	if err != nil {
		return nil, mapProfileErr(err, "count profiles")
	}
	defer rows.Close()

	out := domainauth.RoleCounts{}
	for rows.Next() {
		var (
			role string
			n    int64
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, mapProfileErr(err, "scan role count")
		}
		out[domainauth.ParseRole(role)] += int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapProfileErr(err, "count profiles")
	}
	return out, nil
}

// ChangeRole sets a profile's role and records the change in profile_audit.
func (r *ProfileRepo) ChangeRole(
	ctx context.Context,
	actorID, id string,
	role domainauth.Role,
) (*domainauth.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.ValidationField("role", "Unknown role.")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("profile %q not found", id)
	}

	var out *domainauth.Profile
	err := pgxutil.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		var old string
		if err := tx.QueryRow(ctx, profileLockRoleQuery, id).Scan(&old); err != nil {
			return err
		}
		now := r.clock.Now()
		p, err := scanProfile(tx.QueryRow(ctx, profileSetRoleQuery, id, string(role), now))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, auditInsertQuery,
			id, nullableUUID(actorID), ports.AuditActionRoleChange, old, string(role), now); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, mapProfileErr(err, "change role")
	}
	return out, nil
}

// Remove deletes a profile and records the deletion. A missing profile yields (false, nil).
func (r *ProfileRepo) Remove(ctx context.Context, actorID, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	deleted := false
	err := pgxutil.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		var old string
		if err := tx.QueryRow(ctx, profileLockRoleQuery, id).Scan(&old); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		if _, err := tx.Exec(ctx, auditInsertQuery,
			id, nullableUUID(actorID), ports.AuditActionDelete, old, "", r.clock.Now()); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, profileDeleteQuery, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, mapProfileErr(err, "remove profile")
	}
	return deleted, nil
}

// ListAudit returns the most recent audit entries for a profile.
func (r *ProfileRepo) ListAudit(ctx context.Context, profileID string, limit int) ([]ports.AuditEntry, error) {
	if _, err := uuid.Parse(profileID); err != nil {
		return []ports.AuditEntry{}, nil
	}
	rows, err := r.DB.Query(ctx, auditListQuery, profileID, clampLimit(limit))
	if err != nil {
		return nil, mapProfileErr(err, "list audit")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ports.AuditEntry, error) {
		var (
			e                ports.AuditEntry
			oldRole, newRole string
		)
		if err := row.Scan(&e.ID, &e.ProfileID, &e.ActorID, &e.Action, &oldRole, &newRole, &e.At); err != nil {
			return e, err
		}
		e.OldRole, e.NewRole = domainauth.Role(oldRole), domainauth.Role(newRole)
		return e, nil
	})
	if err != nil {
		return nil, mapProfileErr(err, "list audit")
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*domainauth.Profile, error) {
	var (
		p    domainauth.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.Email, &role, &p.FirstName, &p.LastName, &p.Company, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = domainauth.ParseRole(role)
	return &p, nil
}

func collectProfiles(rows pgx.Rows, op string) ([]*domainauth.Profile, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domainauth.Profile, error) {
		return scanProfile(row)
	})
	if err != nil {
		return nil, mapProfileErr(err, op)
	}
	return out, nil
}

// mapProfileErr maps driver errors to AppErrors and keeps the operation for context.
func mapProfileErr(err error, op string) error {
	mapped := apperrors.MapDBError(err)
	var appErr *apperrors.AppError
	if errors.As(mapped, &appErr) {
		return mapped
	}
	return fmt.Errorf("%s: %w", op, mapped)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultProfileListLimit
	case limit > maxProfileListLimit:
		return maxProfileListLimit
	default:
		return limit
	}
}

// nullableUUID returns nil for ids that are not UUIDs (e.g. the CLI acting as "system").
func nullableUUID(id string) any {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	return id
}
