package auth

import (
	"net/http"
	"strings"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/httpx"
	"github.com/gin-gonic/gin"
)

// Middleware rejects requests without a valid, unrevoked bearer token.
func Middleware(uc UseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": httpx.Body("authenticate", apperr.Unauthorized("authenticate", "missing bearer token")),
			})
			return
		}

		user, err := uc.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(httpx.StatusOf(err), gin.H{"error": httpx.Body("authenticate", err)})
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := GetUser(c); u != nil {
			for _, r := range roles {
				if u.Role == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": httpx.ErrorBody{
			Operation: "authorize",
			Code:      "forbidden",
			Message:   "insufficient role",
		}})
	}
}
