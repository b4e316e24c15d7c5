package auth

import (
	"context"
	"time"

	"github.com/embld/contentcore/observe"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Authenticator validates session handles. Nil resolves every handle to
	// the anonymous principal.
	Authenticator Authenticator

	// AdminLookup supplies the admin flag. Nil means nobody is admin.
	AdminLookup AdminLookup

	// Logger receives resolution failures. Tokens are never logged.
	Logger observe.Logger

	// Now overrides the clock used to reject expired principals.
	Now func() time.Time
}

// Resolver turns session handles into principals.
type Resolver struct {
	authn  Authenticator
	admins AdminLookup
	logger observe.Logger
	now    func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{
		authn:  cfg.Authenticator,
		admins: cfg.AdminLookup,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if r.logger == nil {
		r.logger = observe.NopLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolve returns the principal behind handle. It never fails: any problem
// with the handle yields Anonymous, and a failed admin lookup yields
// IsAdmin=false.
func (r *Resolver) Resolve(ctx context.Context, handle string) Principal {
	if handle == "" || r.authn == nil {
		return Anonymous()
	}

	res, err := r.authn.Authenticate(ctx, handle)
	switch {
	case err != nil:
		r.logger.Warn(ctx, "session resolution failed",
			observe.F("authenticator", r.authn.Name()),
			observe.Err(err),
		)
		return Anonymous()
	case res == nil || !res.Authenticated:
		if res != nil && res.Error != nil {
			r.logger.Debug(ctx, "session rejected",
				observe.F("authenticator", r.authn.Name()),
				observe.Err(res.Error),
			)
		}
		return Anonymous()
	case res.Subject == "":
		return Anonymous()
	}

	p := Principal{
		ID:        res.Subject,
		Method:    res.Method,
		Claims:    res.Claims,
		ExpiresAt: res.ExpiresAt,
	}
	if p.IsExpired(r.now()) {
		r.logger.Debug(ctx, "session expired", observe.F("subject", p.ID))
		return Anonymous()
	}

	p.IsAdmin = r.lookupAdmin(ctx, p.ID)
	return p
}

func (r *Resolver) lookupAdmin(ctx context.Context, id string) bool {
	if r.admins == nil {
		return false
	}
	admin, err := r.admins.IsAdmin(ctx, id)
	if err != nil {
		r.logger.Warn(ctx, "admin lookup failed, treating as non-admin",
			observe.F("subject", id),
			observe.Err(err),
		)
		return false
	}
	return admin
}
