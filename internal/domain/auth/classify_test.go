package auth

import "testing"

func TestClassifier_Classify(t *testing.T) {
	c := Classifier{Allowlist: MustAllowlist("vc@run.edu.ng", "legal@run.edu.ng")}

	tests := []struct {
		name    string
		profile *Profile
		email   string
		want    Role
	}{
		{"superadmin stored", &Profile{Role: RoleSuperadmin}, "x@y.co", RoleSuperadmin},
		{"superadmin never downgraded by allowlist", &Profile{Role: RoleSuperadmin}, "vc@run.edu.ng", RoleSuperadmin},
		{"limited admin never downgraded", &Profile{Role: RoleLimitedAdmin}, "legal@run.edu.ng", RoleLimitedAdmin},
		{"legal stored", &Profile{Role: RoleLegal}, "x@y.co", RoleLegal},
		{"vendor upgraded by allowlist", &Profile{Role: RoleVendor}, "VC@run.edu.ng", RoleLegal},
		{"vendor stays vendor", &Profile{Role: RoleVendor}, "x@y.co", RoleVendor},
		{"unknown stored role falls through", &Profile{Role: Role("owner")}, "x@y.co", RoleVendor},
		{"nil profile allowlisted", nil, "vc@run.edu.ng", RoleLegal},
		{"nil profile", nil, "", RoleVendor},
		{"profile email used when none given", &Profile{Role: RoleVendor, Email: "legal@run.edu.ng"}, "", RoleLegal},
		{"synthetic baseline allowlisted", &Profile{Role: RoleVendor, Synthetic: true}, "vc@run.edu.ng", RoleLegal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.profile, tt.email); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
			// deterministic
			if again := c.Classify(tt.profile, tt.email); again != tt.want {
				t.Fatalf("second Classify() = %q, want %q", again, tt.want)
			}
		})
	}
}

func TestClassifier_NoAllowlist(t *testing.T) {
	var c Classifier
	if got := c.Classify(&Profile{Role: RoleVendor}, "vc@run.edu.ng"); got != RoleVendor {
		t.Fatalf("Classify() = %q, want vendor", got)
	}
}
