package auth

import (
	"context"
	"errors"
)

// CompositeAuthenticator tries authenticators in order and returns the first
// success. It lets a deployment accept both locally signed session tokens and
// tokens from an identity provider's JWKS.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil entries are
// skipped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Len returns the number of wrapped authenticators.
func (c *CompositeAuthenticator) Len() int {
	return len(c.authenticators)
}

// Authenticate tries each authenticator in sequence.
//
// Internal errors from one authenticator do not stop the others; they are
// returned only when no authenticator succeeds.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, handle string) (*AuthResult, error) {
	if len(c.authenticators) == 0 {
		return AuthFailure(ErrMissingCredentials, AuthMethodNone), nil
	}

	var (
		lastResult *AuthResult
		errs       []error
	)
	for _, a := range c.authenticators {
		result, err := a.Authenticate(ctx, handle)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.Authenticated {
			return result, nil
		}
		lastResult = result
	}

	if lastResult != nil {
		return lastResult, nil
	}
	return nil, errors.Join(errs...)
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
