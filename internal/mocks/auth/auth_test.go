package auth

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

func TestFakeSessionClient_Defaults(t *testing.T) {
	c := NewFakeSessionClient()
	ctx := context.Background()

	s, err := c.SignInWithPassword(ctx, "someone@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, c.DefaultUserID, s.UserID)
	assert.Equal(t, "someone@example.com", s.Email)
	assert.True(t, s.IsActive)
	assert.False(t, s.Tokens.Empty())

	res, err := c.SignUp(ctx, ports.SignUpInput{Email: "new@example.com"})
	require.NoError(t, err)
	assert.True(t, res.NeedsVerification)

	start, err := c.BeginOAuth(ctx, ports.OAuthStartInput{Provider: "azure"})
	require.NoError(t, err)
	assert.Contains(t, start.AuthURL, "provider=azure")

	assert.Equal(t, 1, c.Calls("SignInWithPassword"))
	assert.Equal(t, 0, c.Calls("SignOut"))
}

func TestFakeSessionClient_CallbackProviderError(t *testing.T) {
	c := NewFakeSessionClient()
	params := url.Values{"error": {"access_denied"}, "error_description": {"user cancelled"}}

	_, err := c.CompleteOAuthCallback(context.Background(), ports.CallbackInput{Params: params})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeProvider))
}

func TestFakeSessionClient_CurrentWithoutTokens(t *testing.T) {
	c := NewFakeSessionClient()
	_, err := c.GetCurrentSession(context.Background(), domainauth.SessionTokens{})
	assert.True(t, apperrors.IsTokenExpired(err))
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.Error(t, store.Save(ctx, domainauth.Session{}))

	sess := domainauth.Session{ID: "s1", UserID: "u1", IsActive: true}
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Get(ctx, "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryPreferenceStore(t *testing.T) {
	store := NewMemoryPreferenceStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "dev-1", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "dev-1", ports.PrefRememberedEmail, "a@example.com"))
	v, ok, err := store.Get(ctx, "dev-1", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@example.com", v)

	_, ok, _ = store.Get(ctx, "dev-2", ports.PrefRememberedEmail)
	assert.False(t, ok, "preferences are per device")

	require.NoError(t, store.Delete(ctx, "dev-1", ports.PrefRememberedEmail))
	_, ok, _ = store.Get(ctx, "dev-1", ports.PrefRememberedEmail)
	assert.False(t, ok)
}

func TestMemoryProfileStore_InsertConflict(t *testing.T) {
	store := NewMemoryProfileStore()
	ctx := context.Background()
	in := domainauth.NewProfile{ID: "u1", Email: "U1@Example.com", Role: domainauth.RoleVendor}

	p, err := store.Insert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", p.Email)

	_, err = store.Insert(ctx, in)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 1, store.Inserts())
}

func TestMemoryProfileStore_ConcurrentInsertsCreateOneRow(t *testing.T) {
	store := NewMemoryProfileStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Insert(ctx, domainauth.NewProfile{ID: "u1", Email: "u1@example.com"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.Inserts())
}

func TestMemoryProfileStore_ListAndSearch(t *testing.T) {
	store := NewMemoryProfileStore(
		domainauth.Profile{ID: "1", Email: "ann@acme.com", Role: domainauth.RoleVendor, FirstName: "Ann"},
		domainauth.Profile{ID: "2", Email: "bob@acme.com", Role: domainauth.RoleLegal},
		domainauth.Profile{ID: "3", Email: "cat@other.com", Role: domainauth.RoleSuperadmin},
	)
	ctx := context.Background()

	all, err := store.List(ctx, domainauth.ListProfilesOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ann@acme.com", all[0].Email)

	legal, err := store.List(ctx, domainauth.ListProfilesOptions{Role: domainauth.RoleLegal})
	require.NoError(t, err)
	require.Len(t, legal, 1)
	assert.Equal(t, "2", legal[0].ID)

	paged, err := store.List(ctx, domainauth.ListProfilesOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "bob@acme.com", paged[0].Email)

	byPrefix, err := store.FindByEmailPrefix(ctx, "b", 5)
	require.NoError(t, err)
	require.Len(t, byPrefix, 1)

	byEmail, err := store.FindByEmails(ctx, []string{"CAT@other.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, domainauth.RoleSuperadmin, byEmail[0].Role)

	counts, err := store.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domainauth.RoleLegal])
}

func TestMemoryProfileStore_AdminMutationsAreAudited(t *testing.T) {
	store := NewMemoryProfileStore(domainauth.Profile{ID: "u1", Email: "u1@example.com", Role: domainauth.RoleVendor})
	ctx := context.Background()

	p, err := store.ChangeRole(ctx, "admin", "u1", domainauth.RoleLegal)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleLegal, p.Role)

	removed, err := store.Remove(ctx, "admin", "u1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, "admin", "u1")
	require.NoError(t, err)
	assert.False(t, removed)

	entries, err := store.ListAudit(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ports.AuditActionDelete, entries[0].Action)
	assert.Equal(t, ports.AuditActionRoleChange, entries[1].Action)
	assert.Equal(t, domainauth.RoleVendor, entries[1].OldRole)
	assert.Equal(t, domainauth.RoleLegal, entries[1].NewRole)
}

func TestMemoryProfileStore_InjectedErrors(t *testing.T) {
	store := NewMemoryProfileStore()
	store.GetErr = apperrors.New(apperrors.ErrCodePolicyRecursion, "infinite recursion detected in policy")

	_, err := store.GetByID(context.Background(), "u1")
	assert.True(t, apperrors.IsPolicyRecursion(err))
	assert.Equal(t, 1, store.Reads())
}
