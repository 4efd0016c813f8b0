package auth

import (
	"slices"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"vendor":         RoleVendor,
		"SUPERADMIN":     RoleSuperadmin,
		" limited_admin": RoleLimitedAdmin,
		"legal":          RoleLegal,
		"":               RoleVendor,
		"admin":          RoleVendor,
		"root":           RoleVendor,
	}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRole_IsAdmin(t *testing.T) {
	for _, r := range Roles {
		want := r == RoleSuperadmin || r == RoleLimitedAdmin
		if r.IsAdmin() != want {
			t.Errorf("%s.IsAdmin() = %v, want %v", r, r.IsAdmin(), want)
		}
	}
	if RoleNone.Valid() {
		t.Errorf("RoleNone must not be valid")
	}
}

func TestRole_Permissions(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleSuperadmin, PermDeleteUsers, true},
		{RoleSuperadmin, PermSystemSettings, true},
		{RoleLimitedAdmin, PermManageUsers, true},
		{RoleLimitedAdmin, PermDeleteUsers, false},
		{RoleLimitedAdmin, PermPrintCertificate, false},
		{RoleLegal, PermPrintCertificate, true},
		{RoleLegal, PermManageUsers, false},
		{RoleVendor, PermUploadDocuments, true},
		{RoleVendor, PermViewAllData, false},
		{RoleNone, PermViewOwnData, false},
	}
	for _, tt := range tests {
		if got := tt.role.HasPermission(tt.perm); got != tt.want {
			t.Errorf("%s.HasPermission(%s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}

	vendor := RoleVendor.Permissions()
	if !slices.Equal(vendor, []Permission{PermViewOwnData, PermUploadDocuments}) {
		t.Errorf("vendor permissions = %v", vendor)
	}
	if len(Role("ghost").Permissions()) != 0 {
		t.Errorf("unknown role must grant nothing")
	}
}
