package middleware

import (
	"OnlineStore/apperr"
	"github.com/gin-gonic/gin"
	"net/http"
)

// 檢查是否有admin權限，沒有則中止請求
func CheckAdminPermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, exists := CallerFrom(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "尚未登入",
				"error":   apperr.KindUnauthenticated,
			})
			return
		}
		if !caller.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "沒有權限",
				"error":   apperr.KindForbidden,
			})
			return
		}

		c.Next()
	}
}
