package auth

import (
	"context"
	"time"
)

// Authenticator validates an opaque session handle.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Authenticate returns (nil, error) for internal errors;
//   returns (AuthResult, nil) for auth failures (check result.Authenticated).
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Authenticate validates handle and returns a result.
	Authenticate(ctx context.Context, handle string) (*AuthResult, error)
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Subject is the authenticated subject (only if Authenticated=true).
	Subject string

	// Claims are the verified claims backing Subject.
	Claims map[string]any

	// ExpiresAt is when the credential expires, if known.
	ExpiresAt time.Time

	// Error is the authentication error (only if Authenticated=false).
	Error error

	// Method indicates which authenticator method was used.
	Method AuthMethod
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(method AuthMethod, subject string, claims map[string]any, expiresAt time.Time) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Subject:       subject,
		Claims:        claims,
		ExpiresAt:     expiresAt,
		Method:        method,
	}
}

// AuthFailure creates a failed authentication result.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{
		Authenticated: false,
		Error:         err,
		Method:        method,
	}
}

// AuthenticatorFunc adapts a function to an Authenticator.
type AuthenticatorFunc struct {
	name string
	fn   func(ctx context.Context, handle string) (*AuthResult, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(name string, fn func(ctx context.Context, handle string) (*AuthResult, error)) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, fn: fn}
}

// Name returns the authenticator name.
func (f *AuthenticatorFunc) Name() string {
	return f.name
}

// Authenticate calls the wrapped function.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, handle string) (*AuthResult, error) {
	return f.fn(ctx, handle)
}

var _ Authenticator = (*AuthenticatorFunc)(nil)
