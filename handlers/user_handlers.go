package handlers

import (
	"OnlineStore/middleware"
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"net/http"
)

func RegisterHandler(c *gin.Context, users *services.UserService) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email"`
		Tel      string `json:"tel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := users.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Tel:      req.Tel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "註冊成功",
		"userID":  user.ID,
		"user":    user,
	})
}

func LoginHandler(c *gin.Context, users *services.UserService) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "登入成功",
		"login":   result,
	})
}

func LogoutHandler(c *gin.Context, users *services.UserService) {
	if err := users.Logout(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已登出"})
}

func RefreshTokenHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	result, err := users.Refresh(c.Request.Context(), middleware.TokenFrom(c), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "已更新權杖",
		"login":   result,
	})
}

func MeHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	user, err := users.Me(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userID": user.ID, "user": user})
}

func GetUserHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	user, err := users.GetUser(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userID": user.ID, "user": user})
}

// UpdateProfileHandler 只接受email與tel，其餘欄位忽略
func UpdateProfileHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	var req struct {
		Email *string `json:"email"`
		Tel   *string `json:"tel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := users.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		Email: req.Email,
		Tel:   req.Tel,
	}, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "個人資料已更新",
		"userID":  user.ID,
		"user":    user,
	})
}

// MemberStatusHandler GET與PUT皆重新計算會員資格後回傳
func MemberStatusHandler(c *gin.Context, evaluator *services.MembershipEvaluator) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	result, err := evaluator.EvaluateFor(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "會員資格未變更"
	if result.Changed {
		message = "會員資格已更新"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    message,
		"membership": result,
	})
}
