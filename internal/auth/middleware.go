package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/railzwaylabs/tier-orchestrator/internal/config"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
)

const operatorKey = "operator"

// Middleware requires an operator bearer token on every request and hands it
// to downstream calls. Backends remain the authority on the token; the
// signature is only checked here when AUTH_JWT_SECRET is set.
type Middleware struct {
	secret []byte
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{secret: []byte(cfg.AuthJWTSecret)}
}

func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token", "reauthenticate": true})
			return
		}
		tokenString := strings.TrimSpace(authHeader[7:])
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token", "reauthenticate": true})
			return
		}

		operator, err := m.operator(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "reauthenticate": true})
			return
		}

		c.Set(operatorKey, operator)
		c.Request = c.Request.WithContext(credential.WithToken(c.Request.Context(), tokenString))
		c.Next()
	}
}

// operator returns the token subject, falling back to the email claim.
// Without a secret, tokens that are not JWTs are passed through anonymously.
func (m *Middleware) operator(tokenString string) (string, error) {
	claims := jwt.MapClaims{}

	if len(m.secret) > 0 {
		_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil {
			return "", err
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return "", nil
		}
		return "", err
	}

	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	email, _ := claims["email"].(string)
	return email, nil
}

// Operator returns the identity attached by Handler.
func Operator(c *gin.Context) string {
	return c.GetString(operatorKey)
}
