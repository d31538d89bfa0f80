package handlers

import (
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"net/http"
)

type cartItemRequest struct {
	ProductID uint `json:"productID" binding:"required"`
	Quantity  *int `json:"quantity" binding:"required"`
}

func GetCartHandler(c *gin.Context, carts *services.CartService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	cart, err := carts.GetCart(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

func AddToCartHandler(c *gin.Context, carts *services.CartService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := carts.AddItem(c.Request.Context(), userID, req.ProductID, *req.Quantity, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "已加入購物車",
		"cart":    cart,
	})
}

func UpdateCartItemHandler(c *gin.Context, carts *services.CartService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := carts.UpdateItem(c.Request.Context(), userID, req.ProductID, *req.Quantity, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "購物車已更新",
		"cart":    cart,
	})
}

func RemoveCartItemHandler(c *gin.Context, carts *services.CartService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	productID, ok := uintParam(c, "productID")
	if !ok {
		return
	}

	if err := carts.RemoveItem(c.Request.Context(), userID, productID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已從購物車移除"})
}

func ClearCartHandler(c *gin.Context, carts *services.CartService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	if err := carts.Clear(c.Request.Context(), userID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "購物車已清空"})
}

func ListCartsHandler(c *gin.Context, carts *services.CartService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	list, err := carts.ListCarts(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"carts": list})
}
