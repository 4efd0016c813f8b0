package service

import (
	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

// AccessGuard decides whether a resolved subject may enter a protected route.
// It is stateless and safe for concurrent use.
type AccessGuard struct {
	allowlist *domainauth.Allowlist
	routes    domainauth.RouteTable
}

// NewAccessGuard constructs an AccessGuard. A nil route table means DefaultRouteTable.
func NewAccessGuard(allowlist *domainauth.Allowlist, routes domainauth.RouteTable) *AccessGuard {
	if routes == nil {
		routes = domainauth.DefaultRouteTable
	}
	return &AccessGuard{allowlist: allowlist, routes: routes}
}

// Check evaluates required against subject. A nil subject (no live session) is
// unauthenticated. The legal requirement consults the allowlist on every call.
func (g *AccessGuard) Check(required domainauth.Requirement, subject *domainauth.Subject) domainauth.AccessDecision {
	if subject == nil {
		return deny(domainauth.ReasonUnauthenticated)
	}
	role := subject.Role
	ok := false
	switch required {
	case domainauth.RequireAuthenticated, domainauth.RequireVendor:
		ok = role.Valid()
	case domainauth.RequireSuperadmin, domainauth.RequireLimitedAdmin:
		ok = role.IsAdmin()
	case domainauth.RequireLegal:
		ok = role == domainauth.RoleLegal || g.allowlist.Contains(subject.Email)
	}
	if !ok {
		return deny(domainauth.ReasonInsufficientRole)
	}
	return domainauth.AccessDecision{Allow: true, Reason: domainauth.ReasonOK}
}

// CheckPath looks up path in the route table and checks it. Unprotected paths are allowed
// for everyone, including anonymous callers.
func (g *AccessGuard) CheckPath(path string, subject *domainauth.Subject) (domainauth.AccessDecision, bool) {
	req, protected := g.routes.Requirement(path)
	if !protected {
		return domainauth.AccessDecision{Allow: true, Reason: domainauth.ReasonOK}, false
	}
	return g.Check(req, subject), true
}

// Requirement exposes the route table lookup.
func (g *AccessGuard) Requirement(path string) (domainauth.Requirement, bool) {
	return g.routes.Requirement(path)
}

func deny(reason domainauth.Reason) domainauth.AccessDecision {
	return domainauth.AccessDecision{Allow: false, Reason: reason}
}
