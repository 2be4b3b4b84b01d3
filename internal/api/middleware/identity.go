package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

const (
	UserIDHeader = "X-User-ID"
	userIDKey    = "userID"
)

// UserIdentity reads the caller's id set by the upstream auth layer.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			utils.WriteErrorResponse(c, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			utils.WriteErrorResponse(c, http.StatusUnauthorized, "invalid "+UserIDHeader+" header")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by UserIdentity.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
