package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecretOnce sync.Once
	jwtSecretVal  []byte
)

func jwtSecret() []byte {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			panic("JWT_SECRET environment variable is not set")
		}
		jwtSecretVal = []byte(secret)
	})
	return jwtSecretVal
}

// MustInitJWTSecret forces the secret to load at startup so a missing
// JWT_SECRET fails the process instead of the first request.
func MustInitJWTSecret() {
	jwtSecret()
}

// Claims is the session token payload. Role is carried server-signed so the
// account API never has to trust a client-declared role.
type Claims struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// SignSession issues a session token for a freshly authenticated account.
func SignSession(accountID, key, role string) (string, error) {
	claims := Claims{
		AccountID: accountID,
		Key:       key,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// AuthMiddleware validates the bearer session token and stores the verified
// identity in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization required", "Missing Authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization required", "Invalid authorization header format")
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired session", "Session token failed verification")
			c.Abort()
			return
		}

		c.Set("accountId", claims.AccountID)
		c.Set("accountKey", claims.Key)
		c.Set("accountRole", claims.Role)
		c.Next()
	}
}

// RequireRoles gates a route group to the given roles, checked against the
// server-signed role claim.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, ok := GetAccountRole(c)
		if !ok || !allowed[role] {
			RespondWithError(c, http.StatusForbidden, "Access denied", "Account role does not have access to this resource")
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get("accountId")
	if !exists {
		return "", false
	}
	return accountID.(string), true
}

func GetAccountRole(c *gin.Context) (string, bool) {
	role, exists := c.Get("accountRole")
	if !exists {
		return "", false
	}
	return role.(string), true
}
