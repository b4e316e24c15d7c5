package auth

import "net/http"

// SessionCookie is the cookie consulted when a request has no Authorization
// header.
const SessionCookie = "sb-access-token"

// SessionHandle extracts the opaque session handle from r: the Authorization
// header, else the session cookie.
func SessionHandle(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Middleware resolves the request's principal once and attaches it to the
// request context.
//
// Usage:
//
//	mux.Handle("/", auth.Middleware(resolver)(handler))
func Middleware(res *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := res.Resolve(r.Context(), SessionHandle(r))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
