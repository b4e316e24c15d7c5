package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func BenchmarkJWTAuthenticator_Authenticate(b *testing.B) {
	a := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret))
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString(testSecret)
	handle := "Bearer " + token
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.Authenticate(ctx, handle)
	}
}

func BenchmarkCanMutate(b *testing.B) {
	p := Principal{ID: "alice"}
	owner := "alice"
	for i := 0; i < b.N; i++ {
		_ = CanMutate(p, &owner)
	}
}
