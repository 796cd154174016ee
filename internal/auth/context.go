package auth

import (
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/gin-gonic/gin"
)

type UserContext struct {
	UserID    string
	Username  string
	Role      string
	ShopID    string
	TokenID   string
	ExpiresAt time.Time
}

const userContextKey = "auth.user"

func SetUser(c *gin.Context, u *UserContext) {
	c.Set(userContextKey, u)
}

// GetUser returns the authenticated user populated by the middleware, or nil.
func GetUser(c *gin.Context) *UserContext {
	if val, ok := c.Get(userContextKey); ok {
		if u, ok := val.(*UserContext); ok {
			return u
		}
	}
	return nil
}

// ShopScope returns requested; for a manager with no explicit request it
// falls back to the manager's own shop.
func ShopScope(c *gin.Context, requested string) string {
	if requested != "" {
		return requested
	}
	if u := GetUser(c); u != nil && u.Role == model.RoleManager {
		return u.ShopID
	}
	return ""
}
