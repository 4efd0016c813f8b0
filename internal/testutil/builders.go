// Package testutil provides testing utilities and helpers for the compliance gate.
package testutil

import (
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

// ProfileBuilder provides a fluent interface for building profiles for testing.
type ProfileBuilder struct {
	p domainauth.Profile
}

// NewProfile creates a ProfileBuilder for a vendor with a random id.
func NewProfile() *ProfileBuilder {
	now := TestTime()
	return &ProfileBuilder{p: domainauth.Profile{
		ID:        uuid.NewString(),
		Email:     "vendor@example.com",
		Role:      domainauth.RoleVendor,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// WithID sets the profile id.
func (b *ProfileBuilder) WithID(id string) *ProfileBuilder {
	b.p.ID = id
	return b
}

// WithEmail sets the email.
func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.p.Email = email
	return b
}

// WithRole sets the stored role.
func (b *ProfileBuilder) WithRole(role domainauth.Role) *ProfileBuilder {
	b.p.Role = role
	return b
}

// WithName sets first and last name.
func (b *ProfileBuilder) WithName(first, last string) *ProfileBuilder {
	b.p.FirstName = first
	b.p.LastName = last
	return b
}

// WithCompany sets the company.
func (b *ProfileBuilder) WithCompany(company string) *ProfileBuilder {
	b.p.Company = company
	return b
}

// Build returns the profile.
func (b *ProfileBuilder) Build() domainauth.Profile {
	return b.p
}

// BuildNew returns the insert payload for the profile.
func (b *ProfileBuilder) BuildNew() domainauth.NewProfile {
	return domainauth.NewProfile{
		ID:        b.p.ID,
		Email:     b.p.Email,
		Role:      b.p.Role,
		FirstName: b.p.FirstName,
		LastName:  b.p.LastName,
		Company:   b.p.Company,
	}
}

// SessionBuilder provides a fluent interface for building sessions for testing.
type SessionBuilder struct {
	s domainauth.Session
}

// NewSession creates a live password session expiring an hour after TestTime.
func NewSession() *SessionBuilder {
	now := TestTime()
	return &SessionBuilder{s: domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Email:     "vendor@example.com",
		Provider:  domainauth.ProviderPassword,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
		IsActive:  true,
		Tokens: domainauth.SessionTokens{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    now.Add(time.Hour),
		},
	}}
}

// WithID sets the session id.
func (b *SessionBuilder) WithID(id string) *SessionBuilder {
	b.s.ID = id
	return b
}

// WithUser sets the user id and email.
func (b *SessionBuilder) WithUser(userID, email string) *SessionBuilder {
	b.s.UserID = userID
	b.s.Email = email
	return b
}

// WithExpiry sets the server-side expiry.
func (b *SessionBuilder) WithExpiry(at time.Time) *SessionBuilder {
	b.s.ExpiresAt = at
	return b
}

// WithTokens sets the backend tokens.
func (b *SessionBuilder) WithTokens(access, refresh string) *SessionBuilder {
	b.s.Tokens.AccessToken = access
	b.s.Tokens.RefreshToken = refresh
	return b
}

// Inactive marks the session inactive.
func (b *SessionBuilder) Inactive() *SessionBuilder {
	b.s.IsActive = false
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() domainauth.Session {
	return b.s
}
