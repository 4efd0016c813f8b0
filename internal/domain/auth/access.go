package auth

import (
	"path"
	"strings"
)

// Home paths for each role tier.
const (
	PathLogin          = "/login"
	PathVendorHome     = "/vendor/dashboard"
	PathLegalHome      = "/legal/dashboard"
	PathAdminHome      = "/admin/dashboard"
	PathVerifyEmail    = "/verify-email"
	PathResetPassword  = "/reset-password"
	PathPasswordUpdate = "/update-password"
)

// HomeFor returns the landing path for role; RoleNone (and anything unrecognised) goes to login.
func HomeFor(r Role) string {
	switch {
	case r == RoleVendor:
		return PathVendorHome
	case r == RoleLegal:
		return PathLegalHome
	case r.IsAdmin():
		return PathAdminHome
	default:
		return PathLogin
	}
}

// Requirement is what a protected route demands of the caller.
type Requirement string

const (
	RequireAuthenticated Requirement = "authenticated"
	RequireVendor        Requirement = "vendor"
	RequireLegal         Requirement = "legal"
	RequireLimitedAdmin  Requirement = "limited_admin"
	RequireSuperadmin    Requirement = "superadmin"
)

// Reason explains an AccessDecision.
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonInsufficientRole Reason = "insufficient_role"
)

// AccessDecision is the derived result of a guard check. It is never persisted.
type AccessDecision struct {
	Allow  bool   `json:"allow"`
	Reason Reason `json:"reason"`
}

// Subject is the resolved caller presented to the access guard.
type Subject struct {
	UserID string
	Email  string
	Role   Role
}

// RouteRequirement binds a path pattern to a requirement. Patterns ending in "/*"
// match the prefix and everything below it; other patterns match exactly.
type RouteRequirement struct {
	Pattern  string
	Required Requirement
}

// RouteTable is the static protected-route table, consulted longest-pattern first.
type RouteTable []RouteRequirement

// DefaultRouteTable is the application's protected route set.
var DefaultRouteTable = RouteTable{
	{Pattern: "/vendor/*", Required: RequireVendor},
	{Pattern: "/legal/*", Required: RequireLegal},
	{Pattern: "/admin/*", Required: RequireSuperadmin},
	{Pattern: "/api/admin/*", Required: RequireLimitedAdmin},
	{Pattern: "/certificate/*", Required: RequireAuthenticated},
	{Pattern: "/auth/redirect", Required: RequireAuthenticated},
}

// Requirement returns the requirement for p and whether p is protected at all.
func (t RouteTable) Requirement(p string) (Requirement, bool) {
	clean := path.Clean("/" + p)
	var best RouteRequirement
	found := false
	for _, rr := range t {
		if !matchPattern(rr.Pattern, clean) {
			continue
		}
		if !found || len(rr.Pattern) > len(best.Pattern) {
			best, found = rr, true
		}
	}
	return best.Required, found
}

func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	return p == pattern
}
