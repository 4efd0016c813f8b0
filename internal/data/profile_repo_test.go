package data

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

const (
	testProfileID = "5b0c7f34-3c0e-4c39-9c0a-6a3c51f0a001"
	testActorID   = "5b0c7f34-3c0e-4c39-9c0a-6a3c51f0a0ff"
)

var profileCols = []string{"id", "email", "role", "first_name", "last_name", "company", "created_at", "updated_at"}

func setupProfileRepo(t *testing.T) (*ProfileRepo, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	now := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	return NewProfileRepoWithClock(mock, FixedClock(now)), mock, now
}

func profileRow(role string, at time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(profileCols).
		AddRow(testProfileID, "ada@vendor.example", role, "Ada", "Lovelace", "Acme", at, at)
}

func TestProfileRepo_GetByID(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(profileGetByIDQuery)).
		WithArgs(testProfileID).
		WillReturnRows(profileRow("legal", now))

	p, err := repo.GetByID(context.Background(), testProfileID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleLegal, p.Role)
	assert.Equal(t, "Ada", p.FirstName)
	assert.False(t, p.Synthetic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_GetByID_Errors(t *testing.T) {
	tests := []struct {
		name     string
		dbErr    error
		wantCode apperrors.ErrorCode
	}{
		{"not found", pgx.ErrNoRows, apperrors.ErrCodeNotFound},
		{"policy recursion", &pgconn.PgError{Code: pgerrcode.InvalidObjectDefinition, TableName: "profiles"}, apperrors.ErrCodePolicyRecursion},
		{"deadline", context.DeadlineExceeded, apperrors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := setupProfileRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta(profileGetByIDQuery)).
				WithArgs(testProfileID).
				WillReturnError(tt.dbErr)

			_, err := repo.GetByID(context.Background(), testProfileID)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileRepo_GetByID_InvalidIDSkipsQuery(t *testing.T) {
	repo, mock, _ := setupProfileRepo(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Insert(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(profileInsertQuery)).
		WithArgs(testProfileID, "ada@vendor.example", "vendor", "Ada", "Lovelace", "Acme", now).
		WillReturnRows(profileRow("vendor", now))

	p, err := repo.Insert(context.Background(), domainauth.NewProfile{
		ID:        testProfileID,
		Email:     " Ada@Vendor.example ",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Company:   "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleVendor, p.Role)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Insert_Conflict(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(profileInsertQuery)).
		WithArgs(testProfileID, "ada@vendor.example", "vendor", "", "", "", now).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "profiles_pkey"})

	_, err := repo.Insert(context.Background(), domainauth.NewProfile{ID: testProfileID, Email: "ada@vendor.example"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Update(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)
	company := "Initech"

	mock.ExpectQuery(`UPDATE profiles SET company = \$1, updated_at = \$2 WHERE id = \$3 RETURNING`).
		WithArgs(company, now, testProfileID).
		WillReturnRows(profileRow("vendor", now))

	_, err := repo.Update(context.Background(), testProfileID, domainauth.ProfilePatch{Company: &company})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Update_EmptyPatchReads(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(profileGetByIDQuery)).
		WithArgs(testProfileID).
		WillReturnRows(profileRow("vendor", now))

	_, err := repo.Update(context.Background(), testProfileID, domainauth.ProfilePatch{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_FindByEmailPrefix(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(profileByEmailPrefixQuery)).
		WithArgs(`ada\_l%`, 10).
		WillReturnRows(profileRow("vendor", now))

	got, err := repo.FindByEmailPrefix(context.Background(), "Ada_L", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.FindByEmailPrefix(context.Background(), "  ", 10)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfileRepo_FindByEmails(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	empty, err := repo.FindByEmails(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Empty(t, empty)

	mock.ExpectQuery(regexp.QuoteMeta(profileByEmailsQuery)).
		WithArgs([]string{"vc@run.edu.ng", "ada@vendor.example"}).
		WillReturnRows(profileRow("vendor", now))

	got, err := repo.FindByEmails(context.Background(), []string{"VC@run.edu.ng", "ada@vendor.example"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildProfileListQuery(t *testing.T) {
	query, args := buildProfileListQuery(domainauth.ListProfilesOptions{
		Role:   domainauth.RoleLegal,
		Search: "Ada%",
		Limit:  1000,
		Offset: -5,
	})
	assert.Contains(t, query, "WHERE role = $1 AND (lower(email) LIKE $2")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"legal", `%ada\%%`, maxProfileListLimit, 0}, args)

	query, args = buildProfileListQuery(domainauth.ListProfilesOptions{})
	assert.NotContains(t, query, "WHERE")
	assert.Equal(t, []any{defaultProfileListLimit, 0}, args)
}

func TestProfileRepo_CountByRole(t *testing.T) {
	repo, mock, _ := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(profileCountByRoleQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"role", "count"}).
			AddRow("vendor", int64(4)).
			AddRow("legal", int64(1)).
			AddRow("bogus", int64(2)))

	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, counts[domainauth.RoleVendor])
	assert.Equal(t, 1, counts[domainauth.RoleLegal])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Delete(t *testing.T) {
	repo, mock, _ := setupProfileRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(profileDeleteQuery)).
		WithArgs(testProfileID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.Delete(context.Background(), testProfileID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_ChangeRole(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(profileLockRoleQuery)).
		WithArgs(testProfileID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("vendor"))
	mock.ExpectQuery(regexp.QuoteMeta(profileSetRoleQuery)).
		WithArgs(testProfileID, "limited_admin", now).
		WillReturnRows(profileRow("limited_admin", now))
	mock.ExpectExec(regexp.QuoteMeta(auditInsertQuery)).
		WithArgs(testProfileID, testActorID, ports.AuditActionRoleChange, "vendor", "limited_admin", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	p, err := repo.ChangeRole(context.Background(), testActorID, testProfileID, domainauth.RoleLimitedAdmin)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleLimitedAdmin, p.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_ChangeRole_MissingRollsBack(t *testing.T) {
	repo, mock, _ := setupProfileRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(profileLockRoleQuery)).
		WithArgs(testProfileID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ChangeRole(context.Background(), testActorID, testProfileID, domainauth.RoleLegal)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_ChangeRole_RejectsUnknownRole(t *testing.T) {
	repo, mock, _ := setupProfileRepo(t)

	_, err := repo.ChangeRole(context.Background(), testActorID, testProfileID, domainauth.Role("owner"))
	assert.True(t, apperrors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Remove(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(profileLockRoleQuery)).
		WithArgs(testProfileID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("legal"))
	mock.ExpectExec(regexp.QuoteMeta(auditInsertQuery)).
		WithArgs(testProfileID, testActorID, ports.AuditActionDelete, "legal", "", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(profileDeleteQuery)).
		WithArgs(testProfileID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	deleted, err := repo.Remove(context.Background(), testActorID, testProfileID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Remove_Missing(t *testing.T) {
	repo, mock, _ := setupProfileRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(profileLockRoleQuery)).
		WithArgs(testProfileID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	deleted, err := repo.Remove(context.Background(), testActorID, testProfileID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_ListAudit(t *testing.T) {
	repo, mock, now := setupProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(auditListQuery)).
		WithArgs(testProfileID, defaultProfileListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "profile_id", "actor_id", "action", "old_role", "new_role", "at"}).
			AddRow(int64(7), testProfileID, testActorID, "role_change", "vendor", "legal", now))

	entries, err := repo.ListAudit(context.Background(), testProfileID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domainauth.RoleLegal, entries[0].NewRole)
	assert.Equal(t, int64(7), entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
