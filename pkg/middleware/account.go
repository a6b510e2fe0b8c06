package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const AccountIDKey = "account_id"

// AccountMiddleware resolves the owning account of a request from the
// X-Account-ID header set by the gateway. Every engine operation is
// scoped by an explicit account id; there is no ambient user context.
func AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Account-ID")
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account id is required in 'X-Account-ID' header"})
			c.Abort()
			return
		}

		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "account id must be an integer"})
			c.Abort()
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}
