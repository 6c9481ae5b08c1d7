// Package auth issues and verifies the operator tokens guarding the API.
package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail verification
var ErrInvalidToken = errors.New("invalid token")

// SubjectKey is the gin context key holding the verified token subject
const SubjectKey = "auth_subject"

const issuer = "newsmill"

// TokenManager signs and verifies HS256 tokens with a shared secret
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a token manager. An empty secret disables
// verification so the API stays open in development.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// Enabled reports whether a secret is configured
func (m *TokenManager) Enabled() bool {
	return len(m.secret) > 0
}

// Issue signs a token for the subject valid for ttl
func (m *TokenManager) Issue(subject string, ttl time.Duration) (string, error) {
	if !m.Enabled() {
		return "", fmt.Errorf("cannot issue token: no secret configured")
	}
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("cannot issue token: subject is required")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks the signature and time claims and returns the subject
func (m *TokenManager) Verify(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token. Websocket
// clients may pass the token as the "token" query parameter instead.
func (m *TokenManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.Next()
			return
		}

		raw := c.GetHeader("Authorization")
		if raw == "" {
			raw = c.Query("token")
		}
		subject, err := m.Verify(raw)
		if err != nil {
			log.Printf("⚠️ Rejected API request to %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(SubjectKey, subject)
		c.Next()
	}
}
