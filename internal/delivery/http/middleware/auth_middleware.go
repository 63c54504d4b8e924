package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/pkg/apperror"
	"pharmacy-guard-backend/pkg/auth"
	"pharmacy-guard-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authCookieName = "auth_token"

// KeyClaims holds the verified token claims, set even when the subject has
// no local user yet.
const KeyClaims = "Claims"

// TokenVerifier turns an access token into identity claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// SessionMiddleware resolves the caller's session. A missing, expired or
// unknown token leaves the request signed out; the role always comes from
// the user store, never from the token.
func SessionMiddleware(verifier TokenVerifier, authUC domain.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			logger.Log.Debug("token rejected, continuing signed out", "error", err, "request_id", c.GetString("RequestID"))
			c.Next()
			return
		}

		c.Set(KeyClaims, claims)

		user, err := authUC.GetCurrentUser(c.Request.Context(), claims.Subject)
		if errors.Is(err, domain.ErrUserNotFound) {
			logger.Log.Info("token subject has no local user", "sub", claims.Subject)
			c.Next()
			return
		}
		if err != nil {
			_ = c.Error(apperror.Unavailable("User store unavailable", err))
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireAuth rejects requests without a resolved session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			response.Error(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole allows only users holding one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
			c.Abort()
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "Insufficient permissions", nil)
		c.Abort()
	}
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(string(domain.KeyUser))
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// CurrentClaims returns the verified token claims, or nil.
func CurrentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func setUser(c *gin.Context, user *domain.User) {
	c.Set(string(domain.KeyUser), user)
	c.Set(string(domain.KeyUserID), user.ID)
	c.Set(string(domain.KeyUserEmail), user.Email)
	c.Set(string(domain.KeyUserRole), user.Role)

	// Usecases read identity from the request context.
	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, domain.KeyUserID, user.ID)
	ctx = context.WithValue(ctx, domain.KeyUserEmail, user.Email)
	ctx = context.WithValue(ctx, domain.KeyUserRole, user.Role)
	c.Request = c.Request.WithContext(ctx)
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}
