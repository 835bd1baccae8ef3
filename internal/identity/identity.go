// Package identity normalizes and compares email addresses for reply
// matching. Supplier replies often arrive from a different mailbox within
// the same company domain (a sales rep instead of the quoting address), so
// exact matching alone causes false negatives; a domain-level match is the
// deliberate fallback.
package identity

import (
	"net/mail"
	"strings"
)

// Level is the strength of an identity match
type Level int

const (
	None Level = iota
	Domain
	Exact
)

// String returns the level name for logs and audit details
func (l Level) String() string {
	switch l {
	case Exact:
		return "exact"
	case Domain:
		return "domain"
	default:
		return "none"
	}
}

// Normalize extracts the bare address from either "Display Name <addr>" or
// a plain address, lowercased and trimmed. Malformed input degrades to a
// best-effort cleanup rather than an error.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if parsed, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(strings.TrimSpace(parsed.Address))
	}

	// Manual fallback for headers net/mail rejects (unquoted display
	// names with commas, stray encoding artifacts)
	if start := strings.LastIndex(raw, "<"); start != -1 {
		if end := strings.Index(raw[start:], ">"); end != -1 {
			raw = raw[start+1 : start+end]
		}
	}

	return strings.ToLower(strings.TrimSpace(raw))
}

// domainOf returns the part after the last "@", or "" when the address has
// no usable domain
func domainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at == -1 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}

// Match compares a candidate sender against a known supplier address.
// Never errors: empty or malformed input (no "@") yields None.
func Match(candidate, known string) Level {
	c := Normalize(candidate)
	k := Normalize(known)

	if c == "" || k == "" {
		return None
	}

	if c == k && strings.Contains(c, "@") {
		return Exact
	}

	cd, kd := domainOf(c), domainOf(k)
	if cd != "" && cd == kd {
		return Domain
	}

	return None
}
