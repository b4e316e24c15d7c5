package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long fetched keys are trusted before a refresh.
	// Default: 1 hour
	CacheTTL time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// Default: a client with a 10s timeout.
	HTTPClient *http.Client

	// Now overrides the clock used for CacheTTL.
	Now func() time.Time
}

// JWKSKeyProvider retrieves RSA signing keys from a JWKS endpoint.
//
// Concurrent refreshes are coalesced. When a refresh fails, keys from the last
// successful fetch are still served.
type JWKSKeyProvider struct {
	config JWKSConfig
	group  singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSKeyProvider creates a new JWKS key provider.
func NewJWKSKeyProvider(config JWKSConfig) *JWKSKeyProvider {
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &JWKSKeyProvider{
		config: config,
		keys:   make(map[string]*rsa.PublicKey),
	}
}

// GetKey returns the key for keyID. An empty keyID matches the only key of a
// single-key set.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	p.mu.RLock()
	fresh := !p.fetchedAt.IsZero() && p.config.Now().Sub(p.fetchedAt) < p.config.CacheTTL
	key := p.lookupLocked(keyID)
	p.mu.RUnlock()
	if fresh && key != nil {
		return key, nil
	}

	_, err, _ := p.group.Do("refresh", func() (any, error) {
		return nil, p.refresh(ctx)
	})

	p.mu.RLock()
	key = p.lookupLocked(keyID)
	p.mu.RUnlock()
	switch {
	case key != nil:
		return key, nil
	case err != nil:
		return nil, err
	default:
		return nil, ErrKeyNotFound
	}
}

// lookupLocked finds a key by ID. Caller must hold at least RLock.
func (p *JWKSKeyProvider) lookupLocked(keyID string) *rsa.PublicKey {
	if keyID == "" {
		if len(p.keys) != 1 {
			return nil
		}
		for _, key := range p.keys {
			return key
		}
	}
	return p.keys[keyID]
}

func (p *JWKSKeyProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJWKSUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJWKSUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrJWKSUnavailable, resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrJWKSUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable RSA signing keys", ErrJWKSUnavailable)
	}

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = p.config.Now()
	p.mu.Unlock()
	return nil
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

var errBadJWK = errors.New("auth: malformed jwk")

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	if k.N == "" || k.E == "" {
		return nil, fmt.Errorf("%w: missing modulus or exponent", errBadJWK)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("%w: modulus: %w", errBadJWK, err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("%w: exponent: %w", errBadJWK, err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("%w: exponent out of range", errBadJWK)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)
