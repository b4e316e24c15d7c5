package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

const secretRefPrefix = "secretref:"

var (
	ErrUnknownProvider = errors.New("config: secret provider not registered")
	ErrEmptySecret     = errors.New("config: secret resolved to empty value")
	ErrMissingEnv      = errors.New("config: missing required environment variables")
)

// SecretProvider resolves a secret reference. Implementations must not log
// the values they return.
type SecretProvider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves secretref:env:NAME from the process environment.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// FileProvider resolves secretref:file:PATH to the file's contents with
// surrounding whitespace trimmed.
type FileProvider struct{}

func (FileProvider) Name() string { return "file" }

func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SecretResolver expands ${VAR} references and resolves secretref values.
type SecretResolver struct {
	providers map[string]SecretProvider
}

// NewSecretResolver creates a resolver over providers. Nil providers are
// skipped; a later provider replaces an earlier one with the same name.
func NewSecretResolver(providers ...SecretProvider) *SecretResolver {
	r := &SecretResolver{providers: make(map[string]SecretProvider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Resolve returns value with environment references expanded. A value of the
// form secretref:<provider>:<ref> is replaced by the provider's result, which
// must not be empty. The empty string resolves to itself.
func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	expanded, err := expandEnvStrict(value)
	if err != nil {
		return "", err
	}
	name, ref, ok := parseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}

	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	out, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return out, nil
}

func parseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, secretRefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvStrict expands ${VAR} and $VAR. A braced variable that is not set
// is an error. $$ yields a literal dollar sign.
func expandEnvStrict(s string) (string, error) {
	const dollar = "\x00CONTENTCORE_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollar, "$"), nil
}
