package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Роли, которыми шлюз гейтит операции заказа.
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

var (
	// ErrNoToken — в запросе нет bearer-токена.
	ErrNoToken = errors.New("authorization token is missing")
	// ErrMalformedToken — токен не разбирается на части JWT.
	ErrMalformedToken = errors.New("authorization token is malformed")
)

// Claims — типизированные утверждения токена. Роли извлекаются из
// realm_access.roles, а не через обход нетипизированной map.
type Claims struct {
	Subject     string      `json:"sub"`
	Username    string      `json:"preferred_username"`
	RealmAccess RealmAccess `json:"realm_access"`
}

// RealmAccess — блок realm-ролей токена.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// HasRole сообщает, есть ли у владельца токена роль role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseToken извлекает claims из payload-части JWT. Подпись не
// проверяется: валидация токена — обязанность внешнего шлюза, здесь токен
// нужен только как источник ролей.
func ParseToken(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return claims, nil
}

type contextKey struct{}

// ContextWithClaims кладёт claims в контекст запроса.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext достаёт claims, положенные middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(Claims)
	return claims, ok
}

// FromRequest достаёт claims из заголовка Authorization.
func FromRequest(r *http.Request) (Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Claims{}, ErrNoToken
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Claims{}, ErrMalformedToken
	}

	return ParseToken(token)
}

// RequireRole оборачивает handler проверкой роли владельца токена.
func RequireRole(role string, logger *log.Entry, next http.Handler) http.Handler {
	if logger == nil {
		logger = log.New().WithField("component", "auth")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := FromRequest(r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !claims.HasRole(role) {
			logger.WithFields(log.Fields{
				"subject": claims.Subject,
				"role":    role,
			}).Warn("access denied: missing role")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}
