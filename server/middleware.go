package server

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"auctioneer/auctionerrors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	userIDKey    = "user_id"
	isAdminKey   = "is_admin"
	userIDHeader = "X-User-ID"
	adminRole    = "admin"
)

// AuthConfig controls how callers are identified
type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens; the caller is the sub claim
	JWTSecret string
	// AllowUserIDHeader trusts X-User-ID when no bearer token is sent
	AllowUserIDHeader bool
	// AdminUserIDs may read any balance and trigger sweeps; a token with
	// role "admin" is also an operator
	AdminUserIDs []string
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next()

	fields := log.Fields{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if userID := c.GetString(userIDKey); userID != "" {
		fields["userID"] = userID
	}
	log.WithFields(fields).Info("HTTP Request")
}

// Authenticate resolves the caller's identity and rejects anonymous requests
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, err := identify(c, cfg)
		if err != nil {
			respondError(c, "Authenticate", err, log.Fields{"path": c.Request.URL.Path})
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Set(isAdminKey, role == adminRole || slices.Contains(cfg.AdminUserIDs, userID))
		c.Next()
	}
}

// RequireAdmin rejects callers that are not operators with 403
func RequireAdmin(c *gin.Context) {
	if !isAdmin(c) {
		respondError(c, "RequireAdmin", fmt.Errorf("%w: operator access required", auctionerrors.ErrForbidden),
			log.Fields{"path": c.Request.URL.Path, "userID": callerID(c)})
		c.Abort()
		return
	}
	c.Next()
}

func identify(c *gin.Context, cfg AuthConfig) (string, string, error) {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return "", "", fmt.Errorf("%w: malformed authorization header", errUnauthenticated)
		}
		return claimsFromToken(raw, cfg.JWTSecret)
	}

	if cfg.AllowUserIDHeader {
		if userID := strings.TrimSpace(c.GetHeader(userIDHeader)); userID != "" {
			return userID, "", nil
		}
	}

	return "", "", fmt.Errorf("%w: missing bearer token", errUnauthenticated)
}

// claimsFromToken returns the token's sub and optional role claims
func claimsFromToken(raw, secret string) (string, string, error) {
	if secret == "" {
		return "", "", fmt.Errorf("%w: bearer tokens are not accepted", errUnauthenticated)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errUnauthenticated, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", "", fmt.Errorf("%w: token has no subject", errUnauthenticated)
	}
	role, _ := claims["role"].(string)
	return sub, role, nil
}

// callerID returns the identity set by Authenticate
func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(isAdminKey)
}
