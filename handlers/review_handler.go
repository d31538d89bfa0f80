package handlers

import (
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"net/http"
)

func AddReviewHandler(c *gin.Context, reviews *services.ReviewService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	var req struct {
		ProductID uint            `json:"productID" binding:"required"`
		Content   string          `json:"content"`
		Rating    decimal.Decimal `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := reviews.Add(c.Request.Context(), userID, services.ReviewInput{
		ProductID: req.ProductID,
		Content:   req.Content,
		Rating:    req.Rating,
	}, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "評論已新增",
		"review":  review,
	})
}

func ProductReviewsHandler(c *gin.Context, reviews *services.ReviewService) {
	productID, ok := uintParam(c, "productID")
	if !ok {
		return
	}

	list, err := reviews.ListForProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func UserReviewsHandler(c *gin.Context, reviews *services.ReviewService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	list, err := reviews.ListForUser(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}
