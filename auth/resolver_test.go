package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/store"
)

func staticAuthenticator(subject string, err error) Authenticator {
	return NewAuthenticatorFunc("static", func(_ context.Context, handle string) (*AuthResult, error) {
		if err != nil {
			return nil, err
		}
		if handle != "good" {
			return AuthFailure(ErrInvalidCredentials, AuthMethodNone), nil
		}
		return AuthSuccess(AuthMethodJWT, subject, nil, time.Time{}), nil
	})
}

func TestResolver_Resolve(t *testing.T) {
	admins := AdminLookupFunc(func(_ context.Context, id string) (bool, error) {
		switch id {
		case "admin":
			return true, nil
		case "broken":
			return true, errors.New("users table unavailable")
		}
		return false, nil
	})

	tests := []struct {
		name      string
		authn     Authenticator
		handle    string
		wantID    string
		wantAdmin bool
	}{
		{name: "empty handle", authn: staticAuthenticator("u1", nil), handle: "", wantID: ""},
		{name: "rejected handle", authn: staticAuthenticator("u1", nil), handle: "bad", wantID: ""},
		{name: "authenticator error", authn: staticAuthenticator("u1", errors.New("boom")), handle: "good", wantID: ""},
		{name: "empty subject", authn: staticAuthenticator("", nil), handle: "good", wantID: ""},
		{name: "no authenticator", authn: nil, handle: "good", wantID: ""},
		{name: "regular user", authn: staticAuthenticator("u1", nil), handle: "good", wantID: "u1"},
		{name: "admin", authn: staticAuthenticator("admin", nil), handle: "good", wantID: "admin", wantAdmin: true},
		{name: "admin lookup fails closed", authn: staticAuthenticator("broken", nil), handle: "good", wantID: "broken", wantAdmin: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(ResolverConfig{Authenticator: tt.authn, AdminLookup: admins})
			p := r.Resolve(context.Background(), tt.handle)
			if p.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", p.ID, tt.wantID)
			}
			if p.IsAdmin != tt.wantAdmin {
				t.Errorf("IsAdmin = %v, want %v", p.IsAdmin, tt.wantAdmin)
			}
			if tt.wantID == "" && p.Method != AuthMethodAnonymous {
				t.Errorf("Method = %v, want anonymous", p.Method)
			}
		})
	}
}

func TestResolver_AdminLookupRunsEveryResolve(t *testing.T) {
	calls := 0
	admin := true
	r := NewResolver(ResolverConfig{
		Authenticator: staticAuthenticator("u1", nil),
		AdminLookup: AdminLookupFunc(func(context.Context, string) (bool, error) {
			calls++
			return admin, nil
		}),
	})

	if !r.Resolve(context.Background(), "good").IsAdmin {
		t.Fatal("expected admin")
	}
	admin = false
	if r.Resolve(context.Background(), "good").IsAdmin {
		t.Error("revoked admin flag must take effect on the next resolve")
	}
	if calls != 2 {
		t.Errorf("lookup calls = %d, want 2", calls)
	}
}

func TestResolver_RejectsExpiredPrincipal(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	authn := NewAuthenticatorFunc("lenient", func(context.Context, string) (*AuthResult, error) {
		return AuthSuccess(AuthMethodJWT, "u1", nil, now.Add(-time.Second)), nil
	})
	r := NewResolver(ResolverConfig{Authenticator: authn, Now: func() time.Time { return now }})

	if p := r.Resolve(context.Background(), "x"); !p.IsAnonymous() {
		t.Errorf("expired principal resolved to %q", p.ID)
	}
}

func TestResolver_NeverLogsToken(t *testing.T) {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("debug", &buf)
	authn := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret))
	r := NewResolver(ResolverConfig{Authenticator: authn, Logger: logger})

	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).
		SignedString([]byte("wrong-secret-wrong-secret-wrong!"))
	if p := r.Resolve(context.Background(), "Bearer "+token); !p.IsAnonymous() {
		t.Fatal("forged token must resolve anonymous")
	}

	out := buf.String()
	if !strings.Contains(out, "session rejected") {
		t.Errorf("expected rejection log, got %q", out)
	}
	if strings.Contains(out, token) {
		t.Error("log output contains the session token")
	}
}

func TestResolver_WithJWT(t *testing.T) {
	users := store.NewMemoryStore(store.TableSpec{Name: "users"})
	if err := users.Seed("users", store.Row{"id": "u-admin", "is_admin": true}); err != nil {
		t.Fatal(err)
	}
	if err := users.Seed("users", store.Row{"id": "u-plain", "is_admin": false}); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(ResolverConfig{
		Authenticator: NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret)),
		AdminLookup:   StoreAdminLookup{Store: users},
	})

	for _, tc := range []struct {
		sub       string
		wantAdmin bool
	}{
		{"u-admin", true},
		{"u-plain", false},
		{"u-unknown", false},
	} {
		p := r.Resolve(context.Background(), "Bearer "+signHS256(t, jwt.MapClaims{"sub": tc.sub}))
		if p.ID != tc.sub || p.IsAdmin != tc.wantAdmin {
			t.Errorf("Resolve(%s) = {%q admin=%v}, want admin=%v", tc.sub, p.ID, p.IsAdmin, tc.wantAdmin)
		}
	}
}

func TestStoreAdminLookup_StoreError(t *testing.T) {
	// No users table: the lookup reports an error and the resolver maps it to false.
	l := StoreAdminLookup{Store: store.NewMemoryStore()}
	admin, err := l.IsAdmin(context.Background(), "u1")
	if err == nil || admin {
		t.Errorf("IsAdmin() = %v, %v; want false with error", admin, err)
	}
}
