package auth

import (
	"testing"
	"time"
)

func TestSession_Live(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		s    Session
		want bool
	}{
		{"active unexpired", Session{UserID: "u", IsActive: true, ExpiresAt: now.Add(time.Minute)}, true},
		{"active no expiry", Session{UserID: "u", IsActive: true}, true},
		{"expired", Session{UserID: "u", IsActive: true, ExpiresAt: now.Add(-time.Second)}, false},
		{"inactive", Session{UserID: "u", ExpiresAt: now.Add(time.Hour)}, false},
		{"no user", Session{IsActive: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Live(now); got != tt.want {
				t.Fatalf("Live() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBaselineProfile(t *testing.T) {
	s := Session{UserID: "u1", Email: "a@b.co", Metadata: UserMetadata{FirstName: "Ada", Company: "Acme"}}
	p := BaselineProfile(s)
	if !p.Synthetic || p.Role != RoleVendor || p.ID != "u1" || p.FirstName != "Ada" || p.Company != "Acme" {
		t.Fatalf("unexpected baseline profile: %+v", p)
	}
	np := DefaultProfileFor(s)
	if np.Role != RoleVendor || np.ID != "u1" || np.Email != "a@b.co" {
		t.Fatalf("unexpected default profile: %+v", np)
	}
}

func TestStatsFromCounts(t *testing.T) {
	st := StatsFromCounts(RoleCounts{RoleVendor: 7, RoleLegal: 2, RoleSuperadmin: 1, RoleLimitedAdmin: 3})
	if st.Total != 13 || st.Vendors != 7 || st.Admins != 6 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestSessionTokens_Empty(t *testing.T) {
	if !(SessionTokens{}).Empty() {
		t.Fatalf("zero tokens should be empty")
	}
	if (SessionTokens{RefreshToken: "r"}).Empty() {
		t.Fatalf("refresh token alone is not empty")
	}
}
