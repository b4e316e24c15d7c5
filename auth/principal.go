package auth

import "time"

// AuthMethod indicates how a principal was authenticated.
type AuthMethod string

const (
	AuthMethodNone      AuthMethod = "none"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Principal is the resolved identity of the party performing an operation.
//
// A Principal is request-scoped. IsAdmin reflects a lookup made when the
// Principal was resolved and is never carried across requests.
type Principal struct {
	// ID is the subject identifier. Empty for the anonymous principal.
	ID string

	// IsAdmin grants update rights over resources owned by others.
	IsAdmin bool

	// Method indicates how the principal was authenticated.
	Method AuthMethod

	// Claims holds the verified token claims, if any.
	Claims map[string]any

	// ExpiresAt is when the underlying credential expires. Zero means unknown.
	ExpiresAt time.Time
}

// Anonymous returns the principal used when no identity could be resolved.
func Anonymous() Principal {
	return Principal{Method: AuthMethodAnonymous}
}

// IsAnonymous reports whether p carries no identity.
func (p Principal) IsAnonymous() bool {
	return p.ID == ""
}

// IsExpired reports whether p's credential had expired at now.
func (p Principal) IsExpired(now time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(p.ExpiresAt)
}
