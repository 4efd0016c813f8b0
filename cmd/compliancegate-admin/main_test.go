package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	fakes "github.com/target/compliance-gate/internal/mocks/auth"
)

const (
	vendorID = "8a4f1c3e-5b7d-4e2a-9c61-0d3b2f7a9e14"
	bossID   = "1f2e3d4c-5b6a-4978-8695-a4b3c2d1e0f9"
)

func seededStore() *fakes.MemoryProfileStore {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return fakes.NewMemoryProfileStore(
		domainauth.Profile{ID: vendorID, Email: "vendor@example.com", Role: domainauth.RoleVendor,
			FirstName: "Vera", LastName: "Vendor", Company: "Acme", CreatedAt: created},
		domainauth.Profile{ID: bossID, Email: "boss@example.com", Role: domainauth.RoleSuperadmin, CreatedAt: created},
	)
}

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	assert.Contains(t, out, "Usage: compliancegate-admin")
	prev := -1
	for _, name := range []string{"list-users", "migrate", "migrate-status", "set-role", "stats"} {
		idx := strings.Index(out, "  "+name+" ")
		require.NotEqual(t, -1, idx, name)
		assert.Greater(t, idx, prev, name)
		prev = idx
	}
}

func TestSetRole(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	p, err := setRole(ctx, store, "vendor@example.com", domainauth.RoleLegal)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleLegal, p.Role)

	audit, err := store.ListAudit(ctx, vendorID, 10)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Empty(t, audit[0].ActorID)
	assert.Equal(t, domainauth.RoleVendor, audit[0].OldRole)

	_, err = setRole(ctx, store, "ghost@example.com", domainauth.RoleLegal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign in once")
}

func TestRunSetRole_RejectsBadArguments(t *testing.T) {
	cmdCtx := &commandContext{Ctx: context.Background()}

	err := runSetRole(cmdCtx, []string{"only-email@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")

	err = runSetRole(cmdCtx, []string{"vendor@example.com", "root"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor, legal, limited_admin, superadmin")
}

func TestListUsers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listUsers(context.Background(), seededStore(), &buf, listUsersOptions{Limit: 10}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "boss@example.com")
	assert.Contains(t, lines[1], "superadmin")
	assert.Contains(t, lines[2], "Vera Vendor")
	assert.Contains(t, lines[2], "Acme")
	assert.Contains(t, lines[2], "2024-03-01")

	buf.Reset()
	require.NoError(t, listUsers(context.Background(), seededStore(), &buf, listUsersOptions{Role: "legal", Limit: 10}))
	assert.Equal(t, "No users found.\n", buf.String())
}

func TestParseListUsersFlags(t *testing.T) {
	opts, err := parseListUsersFlags([]string{"--role", "Superadmin", "--limit", "5"})
	require.NoError(t, err)
	assert.Equal(t, listUsersOptions{Role: "superadmin", Limit: 5}, opts)

	_, err = parseListUsersFlags([]string{"--role", "wizard"})
	require.Error(t, err)

	_, err = parseListUsersFlags([]string{"--limit", "0"})
	require.Error(t, err)
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags("migrate", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags("migrate", []string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStats(context.Background(), seededStore(), &buf))

	out := buf.String()
	assert.Regexp(t, `Total\s+2`, out)
	assert.Regexp(t, `Vendors\s+1`, out)
	assert.Regexp(t, `Admins\s+1`, out)
	assert.Regexp(t, `superadmin\s+1`, out)
}
