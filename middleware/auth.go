package middleware

import (
	"OnlineStore/access"
	"OnlineStore/jwt"
	"OnlineStore/logger"
	"OnlineStore/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"strings"
)

const (
	userIDKey  = "UserID"
	isAdminKey = "IsAdmin"
	tokenKey   = "Token"
)

// AuthMiddleware 驗證Bearer token，成功時在context中設定UserID、IsAdmin與Token。
// 驗證失敗不會中止請求，由CheckLoginMiddleware決定是否需要登入
func AuthMiddleware(tokens *jwt.Manager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.Next()
			return
		}

		log := logger.WithCtx(c.Request.Context())

		claims, err := tokens.VerifyToken(token, db.WithContext(c.Request.Context()))
		if err != nil {
			log.Debug("無法驗證Token", "error", err)
			c.Next()
			return
		}

		//管理員權限以資料庫為準，撤銷後立即生效
		var user models.User
		err = db.WithContext(c.Request.Context()).Select("id", "is_admin").First(&user, claims.UserID).Error
		if err != nil {
			log.Debug("Token對應的使用者不存在", "userID", claims.UserID, "error", err)
			c.Next()
			return
		}

		c.Set(tokenKey, token)
		c.Set(userIDKey, user.ID)
		c.Set(isAdminKey, user.IsAdmin)
		c.Next()
	}
}

// CallerFrom 取得已驗證的呼叫者
func CallerFrom(c *gin.Context) (access.Caller, bool) {
	userID, ok := c.Get(userIDKey)
	if !ok {
		return access.Caller{}, false
	}
	id, ok := userID.(uint)
	if !ok {
		return access.Caller{}, false
	}
	return access.Caller{ID: id, IsAdmin: c.GetBool(isAdminKey)}, true
}

func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}
