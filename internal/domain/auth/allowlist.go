package auth

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Allowlist is the set of privileged email addresses that confer legal access.
// Entries are either exact addresses or "@domain" suffixes.
type Allowlist struct {
	emails  map[string]struct{}
	domains map[string]struct{}
}

// NewAllowlist normalises entries and rejects malformed ones. Domain entries that are
// a bare public suffix (e.g. "@edu.ng") are rejected since they would match strangers.
func NewAllowlist(entries []string) (*Allowlist, error) {
	a := &Allowlist{emails: map[string]struct{}{}, domains: map[string]struct{}{}}
	for _, raw := range entries {
		e := strings.TrimSpace(raw)
		if e == "" {
			continue
		}
		if strings.HasPrefix(e, "@") {
			d, err := normalizeDomain(e[1:])
			if err != nil {
				return nil, fmt.Errorf("allowlist entry %q: %w", raw, err)
			}
			if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
				return nil, fmt.Errorf("allowlist entry %q: domain is a public suffix", raw)
			}
			a.domains[d] = struct{}{}
			continue
		}
		n := NormalizeEmail(e)
		if !LooksLikeEmail(n) {
			return nil, fmt.Errorf("allowlist entry %q: not an email address", raw)
		}
		a.emails[n] = struct{}{}
	}
	return a, nil
}

// MustAllowlist is NewAllowlist for static entries; it panics on malformed input.
func MustAllowlist(entries ...string) *Allowlist {
	a, err := NewAllowlist(entries)
	if err != nil {
		panic(err)
	}
	return a
}

// Contains reports whether email is privileged. A nil allowlist contains nothing.
func (a *Allowlist) Contains(email string) bool {
	if a == nil {
		return false
	}
	n := NormalizeEmail(email)
	if n == "" {
		return false
	}
	if _, ok := a.emails[n]; ok {
		return true
	}
	if at := strings.LastIndexByte(n, '@'); at >= 0 {
		_, ok := a.domains[n[at+1:]]
		return ok
	}
	return false
}

// Entries returns the normalised entries, sorted.
func (a *Allowlist) Entries() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.emails)+len(a.domains))
	for e := range a.emails {
		out = append(out, e)
	}
	for d := range a.domains {
		out = append(out, "@"+d)
	}
	sort.Strings(out)
	return out
}

// NormalizeEmail trims and lower-cases an address and converts its domain to IDNA ASCII form.
func NormalizeEmail(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(e, '@')
	if at <= 0 || at == len(e)-1 {
		return e
	}
	d, err := normalizeDomain(e[at+1:])
	if err != nil {
		return e
	}
	return e[:at+1] + d
}

// LooksLikeEmail is the shape check used before contacting the identity backend.
func LooksLikeEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

func normalizeDomain(d string) (string, error) {
	d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
	if d == "" {
		return "", fmt.Errorf("empty domain")
	}
	return idna.Lookup.ToASCII(d)
}
