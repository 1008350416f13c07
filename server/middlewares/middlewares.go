package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	AdminTokenHeader = "X-Admin-Token"

	ErrorAdminAuthFail = "ADMIN_AUTH_FAIL"
	ErrorAdminDisabled = "ADMIN_DISABLED"
)

// AdminToken rejects requests whose X-Admin-Token header does not match token.
// With an empty token every admin route is disabled.
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code": ErrorAdminDisabled,
				"msg":  "admin token is not configured",
			})
			c.Abort()
			return
		}

		provided := c.GetHeader(AdminTokenHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			Logger.Log.Warnf("rejected admin request %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": ErrorAdminAuthFail,
				"msg":  "invalid admin token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
