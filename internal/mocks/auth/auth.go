package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight, safe for concurrent use and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionClient     = (*FakeSessionClient)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.PreferenceStore   = (*MemoryPreferenceStore)(nil)
	_ ports.ProfileStore      = (*MemoryProfileStore)(nil)
	_ ports.ProfileAdminStore = (*MemoryProfileStore)(nil)
)

// FakeSessionClient is a SessionClient whose behavior is set per method. Methods without a
// func return a deterministic default session for DefaultUser.
type FakeSessionClient struct {
	SignInFunc        func(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUpFunc        func(ctx context.Context, in ports.SignUpInput) (ports.SignUpResult, error)
	BeginOAuthFunc    func(ctx context.Context, in ports.OAuthStartInput) (ports.OAuthStart, error)
	CallbackFunc      func(ctx context.Context, in ports.CallbackInput) (domainauth.Session, error)
	CurrentFunc       func(ctx context.Context, tokens domainauth.SessionTokens) (domainauth.Session, error)
	ResetFunc         func(ctx context.Context, email, redirectURL string) error
	SetPasswordFunc   func(ctx context.Context, tokens domainauth.SessionTokens, pw string) error
	SignOutFunc       func(ctx context.Context, tokens domainauth.SessionTokens) error
	DefaultUserID     string
	DefaultUserEmail  string

	mu    sync.Mutex
	calls map[string]int
}

// NewFakeSessionClient returns a client that signs everyone in as the default user.
func NewFakeSessionClient() *FakeSessionClient {
	return &FakeSessionClient{
		DefaultUserID:    "8a4f1c3e-5b7d-4e2a-9c61-0d3b2f7a9e14",
		DefaultUserEmail: "vendor@example.com",
	}
}

// Calls reports how many times method was invoked.
func (f *FakeSessionClient) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeSessionClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

func (f *FakeSessionClient) defaultSession(email string) domainauth.Session {
	if email == "" {
		email = f.DefaultUserEmail
	}
	return domainauth.Session{
		UserID:   f.DefaultUserID,
		Email:    email,
		IsActive: true,
		IssuedAt: time.Now(),
		Tokens: domainauth.SessionTokens{
			AccessToken:  "access-" + f.DefaultUserID,
			RefreshToken: "refresh-" + f.DefaultUserID,
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
}

func (f *FakeSessionClient) SignInWithPassword(
	ctx context.Context,
	email, password string,
) (domainauth.Session, error) {
	f.record("SignInWithPassword")
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return f.defaultSession(email), nil
}

func (f *FakeSessionClient) SignUp(ctx context.Context, in ports.SignUpInput) (ports.SignUpResult, error) {
	f.record("SignUp")
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, in)
	}
	return ports.SignUpResult{NeedsVerification: true}, nil
}

func (f *FakeSessionClient) BeginOAuth(ctx context.Context, in ports.OAuthStartInput) (ports.OAuthStart, error) {
	f.record("BeginOAuth")
	if f.BeginOAuthFunc != nil {
		return f.BeginOAuthFunc(ctx, in)
	}
	return ports.OAuthStart{
		AuthURL:  "https://idp.example.com/authorize?provider=" + in.Provider,
		Verifier: "verifier-1",
	}, nil
}

func (f *FakeSessionClient) CompleteOAuthCallback(
	ctx context.Context,
	in ports.CallbackInput,
) (domainauth.Session, error) {
	f.record("CompleteOAuthCallback")
	if f.CallbackFunc != nil {
		return f.CallbackFunc(ctx, in)
	}
	if desc := in.Params.Get("error_description"); desc != "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeProvider, desc)
	}
	return f.defaultSession(""), nil
}

func (f *FakeSessionClient) GetCurrentSession(
	ctx context.Context,
	tokens domainauth.SessionTokens,
) (domainauth.Session, error) {
	f.record("GetCurrentSession")
	if f.CurrentFunc != nil {
		return f.CurrentFunc(ctx, tokens)
	}
	if tokens.Empty() {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeTokenExpired, "no session")
	}
	s := f.defaultSession("")
	s.Tokens = tokens
	return s, nil
}

func (f *FakeSessionClient) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	f.record("RequestPasswordReset")
	if f.ResetFunc != nil {
		return f.ResetFunc(ctx, email, redirectURL)
	}
	return nil
}

func (f *FakeSessionClient) SetNewPassword(ctx context.Context, tokens domainauth.SessionTokens, pw string) error {
	f.record("SetNewPassword")
	if f.SetPasswordFunc != nil {
		return f.SetPasswordFunc(ctx, tokens, pw)
	}
	return nil
}

func (f *FakeSessionClient) SignOut(ctx context.Context, tokens domainauth.SessionTokens) error {
	f.record("SignOut")
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx, tokens)
	}
	return nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if id == "" || !ok {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MemoryPreferenceStore is an in-memory PreferenceStore.
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryPreferenceStore creates an empty preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: make(map[string]string)}
}

func prefKey(deviceID, key string) string { return deviceID + "\x00" + key }

func (m *MemoryPreferenceStore) Get(_ context.Context, deviceID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[prefKey(deviceID, key)]
	return v, ok, nil
}

func (m *MemoryPreferenceStore) Set(_ context.Context, deviceID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[prefKey(deviceID, key)] = value
	return nil
}

func (m *MemoryPreferenceStore) Delete(_ context.Context, deviceID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, prefKey(deviceID, key))
	return nil
}

// MemoryProfileStore is an in-memory ProfileStore and ProfileAdminStore.
// GetErr, when set, is returned by GetByID instead of consulting the map; InsertErr likewise
// for Insert. Both let tests simulate policy recursion and provisioning failures.
type MemoryProfileStore struct {
	GetErr    error
	InsertErr error
	Now       func() time.Time

	mu       sync.Mutex
	profiles map[string]domainauth.Profile
	audit    []ports.AuditEntry
	inserts  int
	reads    int
}

// NewMemoryProfileStore creates a store seeded with profiles.
func NewMemoryProfileStore(seed ...domainauth.Profile) *MemoryProfileStore {
	m := &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
	for _, p := range seed {
		m.profiles[p.ID] = p
	}
	return m
}

// Inserts reports how many Insert calls succeeded.
func (m *MemoryProfileStore) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

// Reads reports how many GetByID calls were made.
func (m *MemoryProfileStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MemoryProfileStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *MemoryProfileStore) GetByID(_ context.Context, id string) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %s not found", id)
	}
	return &p, nil
}

func (m *MemoryProfileStore) FindByEmailPrefix(
	_ context.Context,
	prefix string,
	limit int,
) ([]*domainauth.Profile, error) {
	prefix = strings.ToLower(prefix)
	return m.filter(limit, func(p domainauth.Profile) bool {
		return strings.HasPrefix(strings.ToLower(p.Email), prefix)
	}), nil
}

func (m *MemoryProfileStore) FindByEmails(_ context.Context, emails []string) ([]*domainauth.Profile, error) {
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[domainauth.NormalizeEmail(e)] = true
	}
	return m.filter(0, func(p domainauth.Profile) bool { return want[strings.ToLower(p.Email)] }), nil
}

func (m *MemoryProfileStore) List(
	_ context.Context,
	opts domainauth.ListProfilesOptions,
) ([]*domainauth.Profile, error) {
	search := strings.ToLower(opts.Search)
	all := m.filter(0, func(p domainauth.Profile) bool {
		if opts.Role != domainauth.RoleNone && p.Role != opts.Role {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.Email), search) ||
			strings.Contains(strings.ToLower(p.FirstName), search) ||
			strings.Contains(strings.ToLower(p.LastName), search)
	})
	if opts.Offset >= len(all) {
		return []*domainauth.Profile{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (m *MemoryProfileStore) Insert(_ context.Context, in domainauth.NewProfile) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	if _, exists := m.profiles[in.ID]; exists {
		return nil, apperrors.Conflict("profile already exists")
	}
	now := m.now()
	p := domainauth.Profile{
		ID:        in.ID,
		Email:     domainauth.NormalizeEmail(in.Email),
		Role:      in.Role,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Company:   in.Company,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !p.Role.Valid() {
		p.Role = domainauth.RoleVendor
	}
	m.profiles[p.ID] = p
	m.inserts++
	return &p, nil
}

func (m *MemoryProfileStore) Update(
	_ context.Context,
	id string,
	patch domainauth.ProfilePatch,
) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %s not found", id)
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = *patch.LastName
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
	p.UpdatedAt = m.now()
	m.profiles[id] = p
	return &p, nil
}

func (m *MemoryProfileStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.profiles[id]
	delete(m.profiles, id)
	return ok, nil
}

func (m *MemoryProfileStore) CountByRole(_ context.Context) (domainauth.RoleCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := domainauth.RoleCounts{}
	for _, p := range m.profiles {
		counts[p.Role]++
	}
	return counts, nil
}

func (m *MemoryProfileStore) ChangeRole(
	_ context.Context,
	actorID, id string,
	role domainauth.Role,
) (*domainauth.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.ValidationField("role", "unknown role")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %s not found", id)
	}
	old := p.Role
	p.Role = role
	p.UpdatedAt = m.now()
	m.profiles[id] = p
	m.appendAudit(actorID, id, ports.AuditActionRoleChange, old, role)
	return &p, nil
}

func (m *MemoryProfileStore) Remove(_ context.Context, actorID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return false, nil
	}
	delete(m.profiles, id)
	m.appendAudit(actorID, id, ports.AuditActionDelete, p.Role, domainauth.RoleNone)
	return true, nil
}

func (m *MemoryProfileStore) ListAudit(_ context.Context, profileID string, limit int) ([]ports.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ports.AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		if m.audit[i].ProfileID != profileID {
			continue
		}
		out = append(out, m.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryProfileStore) appendAudit(actorID, id, action string, oldRole, newRole domainauth.Role) {
	m.audit = append(m.audit, ports.AuditEntry{
		ID:        int64(len(m.audit) + 1),
		ProfileID: id,
		ActorID:   actorID,
		Action:    action,
		OldRole:   oldRole,
		NewRole:   newRole,
		At:        m.now(),
	})
}

// filter returns matching profiles ordered by email; limit <= 0 means no limit.
func (m *MemoryProfileStore) filter(limit int, keep func(domainauth.Profile) bool) []*domainauth.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := slices.Sorted(maps.Keys(m.profiles))
	out := []*domainauth.Profile{}
	for _, id := range ids {
		p := m.profiles[id]
		if !keep(p) {
			continue
		}
		out = append(out, &p)
	}
	slices.SortStableFunc(out, func(a, b *domainauth.Profile) int { return strings.Compare(a.Email, b.Email) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
