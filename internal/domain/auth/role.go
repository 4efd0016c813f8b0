package auth

import "strings"

// Role is the closed set of application roles. The string form is what the
// profiles table stores.
type Role string

const (
	RoleNone         Role = ""
	RoleVendor       Role = "vendor"
	RoleLimitedAdmin Role = "limited_admin"
	RoleSuperadmin   Role = "superadmin"
	RoleLegal        Role = "legal"
)

// Roles lists every assignable role in display order.
var Roles = []Role{RoleVendor, RoleLegal, RoleLimitedAdmin, RoleSuperadmin}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleVendor, RoleLimitedAdmin, RoleSuperadmin, RoleLegal:
		return true
	}
	return false
}

// IsAdmin reports whether r occupies the admin capability tier.
func (r Role) IsAdmin() bool { return r == RoleSuperadmin || r == RoleLimitedAdmin }

// ParseRole converts a stored value to a Role. Unknown or empty values map to vendor.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return RoleVendor
}

// Permission names a capability checked by administrative operations and views.
type Permission string

const (
	PermManageUsers      Permission = "manage_users"
	PermDeleteUsers      Permission = "delete_users"
	PermViewAllData      Permission = "view_all_data"
	PermViewOwnData      Permission = "view_own_data"
	PermUploadDocuments  Permission = "upload_documents"
	PermExportData       Permission = "export_data"
	PermSystemSettings   Permission = "system_settings"
	PermApproveForms     Permission = "approve_forms"
	PermPrintCertificate Permission = "print_certificate"
	PermDownloadData     Permission = "download_data"
)

var permissionMatrix = map[Role]map[Permission]bool{
	RoleSuperadmin: {
		PermManageUsers:      true,
		PermDeleteUsers:      true,
		PermViewAllData:      true,
		PermExportData:       true,
		PermSystemSettings:   true,
		PermApproveForms:     true,
		PermPrintCertificate: true,
		PermDownloadData:     true,
	},
	RoleLimitedAdmin: {
		PermManageUsers: true,
		PermViewAllData: true,
		PermExportData:  true,
	},
	RoleLegal: {
		PermViewAllData:      true,
		PermExportData:       true,
		PermPrintCertificate: true,
		PermDownloadData:     true,
	},
	RoleVendor: {
		PermViewOwnData:     true,
		PermUploadDocuments: true,
	},
}

// HasPermission reports whether role r grants p. Unknown roles grant nothing.
func (r Role) HasPermission(p Permission) bool {
	return permissionMatrix[r][p]
}

// Permissions returns the granted permissions for r in a stable order.
func (r Role) Permissions() []Permission {
	all := []Permission{
		PermManageUsers, PermDeleteUsers, PermViewAllData, PermViewOwnData, PermUploadDocuments,
		PermExportData, PermSystemSettings, PermApproveForms, PermPrintCertificate, PermDownloadData,
	}
	out := make([]Permission, 0, len(all))
	for _, p := range all {
		if r.HasPermission(p) {
			out = append(out, p)
		}
	}
	return out
}
