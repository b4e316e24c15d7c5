package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSigningMethods are the algorithms accepted when JWTConfig.Methods is
// empty.
var DefaultSigningMethods = []string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512"}

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// TokenPrefix is stripped from the handle when present.
	// Default: "Bearer "
	TokenPrefix string

	// PrincipalClaim is the claim containing the subject.
	// Default: "sub"
	PrincipalClaim string

	// Methods restricts the accepted signing algorithms.
	// Default: DefaultSigningMethods
	Methods []string

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration

	// Now overrides the clock used for time-based claims.
	Now func() time.Time
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static HMAC signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator validates session handles that carry a signed JWT.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if len(config.Methods) == 0 {
		config.Methods = DefaultSigningMethods
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Methods),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(config.Now),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config:      config,
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Authenticate validates the JWT carried by handle. The handle may be the raw
// token or the token behind TokenPrefix.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, handle string) (*AuthResult, error) {
	token := a.extractToken(handle)
	if token == "" {
		return AuthFailure(ErrMissingCredentials, AuthMethodJWT), nil
	}

	var keyErr error
	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := a.keyProvider.GetKey(ctx, kid)
		if err != nil {
			keyErr = err
		}
		return key, err
	})
	if err != nil {
		switch {
		case keyErr != nil && !errors.Is(keyErr, ErrKeyNotFound):
			return nil, fmt.Errorf("jwt: resolve signing key: %w", keyErr)
		case errors.Is(err, jwt.ErrTokenExpired):
			return AuthFailure(ErrTokenExpired, AuthMethodJWT), nil
		case errors.Is(err, jwt.ErrTokenMalformed):
			return AuthFailure(ErrTokenMalformed, AuthMethodJWT), nil
		default:
			return AuthFailure(fmt.Errorf("%w: %w", ErrInvalidCredentials, err), AuthMethodJWT), nil
		}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return AuthFailure(ErrTokenMalformed, AuthMethodJWT), nil
	}

	subject, _ := claims[a.config.PrincipalClaim].(string)
	if subject == "" {
		return AuthFailure(ErrMissingSubject, AuthMethodJWT), nil
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	copied := make(map[string]any, len(claims))
	for k, v := range claims {
		copied[k] = v
	}
	return AuthSuccess(AuthMethodJWT, subject, copied, expiresAt), nil
}

func (a *JWTAuthenticator) extractToken(handle string) string {
	handle = strings.TrimSpace(handle)
	if prefix := a.config.TokenPrefix; len(handle) >= len(prefix) && strings.EqualFold(handle[:len(prefix)], prefix) {
		handle = handle[len(prefix):]
	}
	return strings.TrimSpace(handle)
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
