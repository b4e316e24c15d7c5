// Package config loads contentcore's application configuration.
//
// Values come from an optional config.yaml in the working directory and from
// environment variables prefixed with CONTENTCORE, where the dot in a key
// becomes an underscore: "store.url" is read from CONTENTCORE_STORE_URL.
//
// Credential-bearing values (auth.jwt_secret, store.url) may be secret
// references instead of literals:
//
//	secretref:env:JWT_SIGNING_KEY
//	secretref:file:/run/secrets/jwt
//
// ${VAR} references are expanded strictly: a missing variable is an error.
package config
