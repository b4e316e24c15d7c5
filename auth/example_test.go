package auth_test

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/embld/contentcore/auth"
)

func ExampleResolver_Resolve() {
	secret := []byte("example-secret-example-secret-00")
	resolver := auth.NewResolver(auth.ResolverConfig{
		Authenticator: auth.NewJWTAuthenticator(auth.JWTConfig{}, auth.NewStaticKeyProvider(secret)),
		AdminLookup: auth.AdminLookupFunc(func(_ context.Context, id string) (bool, error) {
			return id == "moderator", nil
		}),
	})

	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "moderator"}).SignedString(secret)

	p := resolver.Resolve(context.Background(), "Bearer "+token)
	fmt.Println(p.ID, p.IsAdmin)

	anon := resolver.Resolve(context.Background(), "Bearer garbage")
	fmt.Println(anon.IsAnonymous())
	// Output:
	// moderator true
	// true
}

func ExampleCanMutate() {
	owner := "alice"
	bob := auth.Principal{ID: "bob"}
	admin := auth.Principal{ID: "root", IsAdmin: true}

	fmt.Println(auth.CanMutate(bob, nil))
	fmt.Println(auth.CanMutate(bob, &owner))
	fmt.Println(auth.CanMutate(admin, &owner))
	fmt.Println(auth.CanMutate(auth.Anonymous(), nil))
	// Output:
	// true
	// false
	// true
	// false
}
