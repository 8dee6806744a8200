package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"drug_portfolio/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as encoded in the bearer token. The
// gate is stateless: no user row is loaded per request, the token re-verifies
// on every call.
type Identity struct {
	Id       uuid.UUID
	Username string
	Role     string
}

type requestContextKey string

const identityRequestContextKey requestContextKey = "identity"

func IdentityFromContext(r *http.Request) (Identity, error) {
	identityUntyped := r.Context().Value(identityRequestContextKey)
	if identityUntyped == nil {
		return Identity{}, fmt.Errorf("identity field not found in request context")
	}
	identity, ok := identityUntyped.(Identity)
	if !ok {
		return Identity{}, fmt.Errorf("invalid value for identity field")
	}
	return identity, nil
}

func (m *JwtManager) identityToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromClaims(r)
			if err != nil {
				utils.WriteJsonError(w, err.Error(), http.StatusUnauthorized)
				return
			}

			reqCtx := context.WithValue(r.Context(), identityRequestContextKey, identity)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		}
		return http.HandlerFunc(handler)
	}
}

// AuthMiddleware is the full authentication stack for protected routes:
// verify the bearer token, reject if absent/invalid, attach the identity to
// the request context, then audit-log the call.
func (m *JwtManager) AuthMiddleware(auditLog AuditLogger) chi.Middlewares {
	return chi.Middlewares{m.Verifier(), m.Authenticator(), m.identityToContext(), auditLog.Middleware}
}

// RequireRole gates a route group on the caller's role. Authentication must
// already have run.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r)
			if err != nil {
				utils.WriteJsonError(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !slices.Contains(roles, identity.Role) {
				utils.WriteJsonError(w, "insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(handler)
	}
}
