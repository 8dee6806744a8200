package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"drug_portfolio/portfolio/schema"
	"drug_portfolio/utils"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// TokenDuration is the validity window of issued credentials. Tokens are
// stateless, expiry is the only revocation mechanism.
const TokenDuration = 24 * time.Hour

const (
	userIdKey   = "user_id"
	usernameKey = "username"
	roleKey     = "role"
)

type JwtManager struct {
	auth *jwtauth.JWTAuth
}

func NewJwtManager(secret []byte) *JwtManager {
	return &JwtManager{auth: jwtauth.New("HS256", secret, nil)}
}

func (m *JwtManager) CreateUserJwt(user schema.User) (string, error) {
	claims := map[string]interface{}{
		userIdKey:   user.Id.String(),
		usernameKey: user.Username,
		roleKey:     user.Role,
		"exp":       time.Now().Add(TokenDuration),
	}
	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", fmt.Errorf("error generating access token: %w", err)
	}
	return token, nil
}

func (m *JwtManager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(m.auth)
}

// Authenticator mirrors jwtauth.Authenticator but emits the json error body
// used everywhere else in the api.
func (m *JwtManager) Authenticator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				utils.WriteJsonError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(handler)
	}
}

func claimFromContext(r *http.Request, key string) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", fmt.Errorf("error retrieving auth claims: %w", err)
	}

	valueUncasted, ok := claims[key]
	if !ok {
		return "", fmt.Errorf("invalid token: unable to locate key %v in claims", key)
	}

	value, ok := valueUncasted.(string)
	if !ok {
		return "", fmt.Errorf("invalid token: value for key %v has invalid type", key)
	}

	return value, nil
}

func identityFromClaims(r *http.Request) (Identity, error) {
	userId, err := claimFromContext(r, userIdKey)
	if err != nil {
		return Identity{}, err
	}

	id, err := uuid.Parse(userId)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid user uuid '%v': %w", userId, err)
	}

	username, err := claimFromContext(r, usernameKey)
	if err != nil {
		return Identity{}, err
	}

	role, err := claimFromContext(r, roleKey)
	if err != nil {
		return Identity{}, err
	}
	if err := schema.CheckValidRole(role); err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	return Identity{Id: id, Username: username, Role: role}, nil
}
