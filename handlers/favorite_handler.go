package handlers

import (
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"net/http"
)

func userProductParams(c *gin.Context) (uint, uint, bool) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return 0, 0, false
	}
	productID, ok := uintParam(c, "productID")
	if !ok {
		return 0, 0, false
	}
	return userID, productID, true
}

func CheckFavoriteHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, productID, ok := userProductParams(c)
	if !ok {
		return
	}

	favorited, err := favorites.Check(c.Request.Context(), userID, productID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productID": productID, "isFavorite": favorited})
}

func AddFavoriteHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, productID, ok := userProductParams(c)
	if !ok {
		return
	}

	if err := favorites.Add(c.Request.Context(), userID, productID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "已加入收藏"})
}

func RemoveFavoriteHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, productID, ok := userProductParams(c)
	if !ok {
		return
	}

	if err := favorites.Remove(c.Request.Context(), userID, productID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已取消收藏"})
}

func ListFavoritesHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	products, err := favorites.List(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func CountFavoritesHandler(c *gin.Context, favorites *services.FavoriteService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	count, err := favorites.Count(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
