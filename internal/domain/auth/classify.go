package auth

// Classifier maps a stored profile plus an email to the effective role.
type Classifier struct {
	Allowlist *Allowlist
}

// Classify applies the decision order superadmin, limited_admin, legal (stored or
// allowlisted), vendor. It never performs I/O and treats a nil profile as having no role.
// When email is empty the profile's own email is used for the allowlist check.
func (c Classifier) Classify(p *Profile, email string) Role {
	var stored Role
	if p != nil {
		stored = p.Role
		if email == "" {
			email = p.Email
		}
	}
	switch stored {
	case RoleSuperadmin:
		return RoleSuperadmin
	case RoleLimitedAdmin:
		return RoleLimitedAdmin
	}
	if stored == RoleLegal || c.Allowlist.Contains(email) {
		return RoleLegal
	}
	return RoleVendor
}
