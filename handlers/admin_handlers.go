package handlers

import (
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"net/http"
)

func ListUsersHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}

	list, err := users.ListUsers(c.Request.Context(), page, c.Query("search"), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func AdminStatusHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	status, err := users.AdminStatus(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func SetAdminHandler(c *gin.Context, users *services.UserService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	var req struct {
		IsAdmin *bool `json:"isAdmin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := users.SetAdmin(c.Request.Context(), userID, *req.IsAdmin, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "管理員權限已更新",
		"status":  status,
	})
}

func ListAllFavoritesHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}

	list, err := favorites.ListAll(c.Request.Context(), page, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": list})
}

func UserFavoritesHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	list, err := favorites.ListForUser(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": list})
}

func ListAllReviewsHandler(c *gin.Context, reviews *services.ReviewService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}

	list, err := reviews.ListAll(c.Request.Context(), page, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func DeleteReviewHandler(c *gin.Context, reviews *services.ReviewService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, productID, ok := userProductParams(c)
	if !ok {
		return
	}

	if err := reviews.Delete(c.Request.Context(), userID, productID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "評論已刪除"})
}
