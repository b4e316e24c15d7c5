package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Keyer derives deterministic cache keys from query parameters.
//
// Contract:
// - Determinism: equal inputs produce equal keys regardless of map order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace string, params any) (string, error)
}

// DefaultKeyer hashes canonical JSON with xxhash.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns <namespace>:<16 hex digits of xxhash64(canonical JSON(params))>.
// Nil params yield the bare namespace.
func (k *DefaultKeyer) Key(namespace string, params any) (string, error) {
	if params == nil {
		return namespace, ValidateKey(namespace)
	}
	canonical, err := canonicalize(params)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalize params: %w", err)
	}
	key := namespace + ":" + fmt.Sprintf("%016x", xxhash.Sum64(canonical))
	return key, ValidateKey(key)
}

// Key joins parts with ':' to form a key such as "idea-detail:42".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	default:
		// encoding/json already sorts map keys of other map types.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		b, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		b, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
