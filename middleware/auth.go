package middleware

import (
	"context"
	"strings"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
)

const (
	userKey     = "user"
	identityKey = "identity"
)

// UserFinder loads the account behind a token
type UserFinder interface {
	FindActiveUser(ctx context.Context, id uint) (*models.User, error)
}

// AuthMiddleware requires a valid bearer token whose user still exists and is
// not blocked. The identity is taken from the stored user, not the claims.
func AuthMiddleware(secret string, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogDebug("Missing Authorization header on %s", c.FullPath())
			utils.Unauthorized(c, "Please login for access")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			utils.Unauthorized(c, "Please login for access")
			return
		}

		claims, err := utils.ParseToken(tokenString, secret)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			utils.Unauthorized(c, "Please login for access")
			return
		}

		user, err := users.FindActiveUser(c.Request.Context(), claims.UserID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Set(identityKey, utils.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			utils.Unauthorized(c, "Please login for access")
			return
		}
		if !identity.IsAdmin() {
			utils.LogInfo("Non-admin user %d attempted admin access to %s", identity.UserID, c.FullPath())
			utils.Forbidden(c, "Admin access required")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthMiddleware
func CurrentIdentity(c *gin.Context) (utils.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return utils.Identity{}, false
	}
	identity, ok := v.(utils.Identity)
	return identity, ok
}

// CurrentUser returns the user stored by AuthMiddleware
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// SetIdentity stores an identity the way AuthMiddleware does. Used by handler tests.
func SetIdentity(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set(identityKey, utils.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
}
