package auth

// Package auth contains domain-level types for authentication, profiles and roles.
// It is pure and free of framework/adapter concerns.

import "time"

// Provider records how a session was established.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderOAuth    Provider = "oauth"
)

// SessionTokens are the identity backend's bearer credentials for one browser.
// ExpiresAt is the access token's expiry; the refresh token outlives it.
type SessionTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Empty reports whether neither token is present.
func (t SessionTokens) Empty() bool { return t.AccessToken == "" && t.RefreshToken == "" }

// UserMetadata carries the optional name fields captured at signup or from an OAuth provider.
type UserMetadata struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session is the proof of authenticated identity for the current browsing period.
// ID is the opaque server-side identifier handed to the browser as a cookie.
// A Session is replaced wholesale on sign-in and sign-out, never patched.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Email     string        `json:"email"`
	Provider  Provider      `json:"provider"`
	IssuedAt  time.Time     `json:"issued_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	IsActive  bool          `json:"is_active"`
	Tokens    SessionTokens `json:"tokens"`
	Metadata  UserMetadata  `json:"metadata"`
}

// Live reports whether the session is active and unexpired at now.
func (s Session) Live(now time.Time) bool {
	if !s.IsActive || s.UserID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Profile is the durable per-user record carrying role and contact metadata.
// ID equals the owning identity's user id.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Synthetic marks the in-memory baseline profile used in degraded mode; it is never persisted.
	Synthetic bool `json:"-"`
}

// BaselineProfile returns the synthetic vendor profile used when the store cannot provide one.
func BaselineProfile(s Session) *Profile {
	return &Profile{
		ID:        s.UserID,
		Email:     s.Email,
		Role:      RoleVendor,
		FirstName: s.Metadata.FirstName,
		LastName:  s.Metadata.LastName,
		Company:   s.Metadata.Company,
		Synthetic: true,
	}
}

// NewProfile is the insert payload for a profile row.
type NewProfile struct {
	ID        string
	Email     string
	Role      Role
	FirstName string
	LastName  string
	Company   string
}

// DefaultProfileFor builds the default vendor profile for a freshly authenticated identity.
func DefaultProfileFor(s Session) NewProfile {
	return NewProfile{
		ID:        s.UserID,
		Email:     s.Email,
		Role:      RoleVendor,
		FirstName: s.Metadata.FirstName,
		LastName:  s.Metadata.LastName,
		Company:   s.Metadata.Company,
	}
}

// ProfilePatch holds optional updates; nil fields are left unchanged.
type ProfilePatch struct {
	Role      *Role
	FirstName *string
	LastName  *string
	Company   *string
}

// ListProfilesOptions filters and pages profile listings.
type ListProfilesOptions struct {
	Role   Role
	Search string // case-insensitive match on email, first or last name
	Limit  int
	Offset int
}

// RoleCounts is the per-role profile tally used by the admin statistics view.
type RoleCounts map[Role]int

// UserStats summarises the user base.
type UserStats struct {
	Total   int `json:"total"`
	Vendors int `json:"vendors"`
	Admins  int `json:"admins"`
}

// StatsFromCounts folds per-role counts into UserStats. Legal users count toward admins.
func StatsFromCounts(c RoleCounts) UserStats {
	var st UserStats
	for role, n := range c {
		st.Total += n
		if role == RoleVendor {
			st.Vendors += n
		} else {
			st.Admins += n
		}
	}
	return st
}
