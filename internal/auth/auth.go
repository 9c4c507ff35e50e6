package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rmitchellscott/chartserver/internal/logging"
	"github.com/rmitchellscott/chartserver/internal/middleware"
)

const subjectKey = "auth_subject"

// Authenticator guards the render endpoints with HS256 bearer tokens and an
// optional static API key. With neither configured every request passes.
type Authenticator struct {
	secret []byte
	apiKey string
}

func NewAuthenticator(jwtSecret, apiKey string) *Authenticator {
	a := &Authenticator{apiKey: apiKey}
	if jwtSecret != "" {
		a.secret = []byte(jwtSecret)
	}
	return a
}

// Enabled reports whether any credential is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0 || a.apiKey != ""
}

// IssueToken signs a token for subject valid for ttl.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(a.secret)
}

// ParseToken validates tokenString and returns its subject.
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// Required rejects requests without a valid API key or bearer token. The
// token may also come from the "token" query parameter or the auth_token
// cookie, so image URLs can be embedded directly.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		if a.apiKey != "" {
			if key := c.GetHeader("X-API-Key"); key != "" &&
				subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) == 1 {
				c.Set(subjectKey, "api_key")
				c.Next()
				return
			}
		}

		tokenString := extractToken(c)
		if tokenString == "" || len(a.secret) == 0 {
			middleware.RespondError(c, middleware.NewHTTPError("Authentication required", "auth", http.StatusUnauthorized))
			return
		}
		subject, err := a.ParseToken(tokenString)
		if err != nil {
			logging.DebugWithComponent(logging.ComponentAuth, "Rejected token",
				"ip", c.ClientIP(),
				"error", err)
			middleware.RespondError(c, middleware.NewHTTPError(fmt.Sprintf("Invalid token: %v", err), "auth", http.StatusUnauthorized))
			return
		}
		c.Set(subjectKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated subject, "" for anonymous requests.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	if token, err := c.Cookie("auth_token"); err == nil {
		return token
	}
	return ""
}
