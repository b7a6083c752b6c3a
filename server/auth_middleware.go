package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-video-server/auth"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the authenticated *auth.Identity
const ContextKeyIdentity ContextKey = "identity"

// RequireAuth validates the access token and injects the caller's identity.
// The accessToken cookie is read first, then an "Authorization: Bearer" header.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, err := s.authenticator.Authenticate(r.Context(), accessTokenFromRequest(r))
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next(w, r.WithContext(ctx))
		}
	}
}

// accessTokenFromRequest returns "" when neither location carries a token.
func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// IdentityFromContext returns the identity injected by RequireAuth.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*auth.Identity)
	return identity, ok && identity != nil
}
