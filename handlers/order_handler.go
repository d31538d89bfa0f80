package handlers

import (
	"OnlineStore/access"
	"OnlineStore/models"
	"OnlineStore/services"
	"context"
	"github.com/gin-gonic/gin"
	"net/http"
)

// CreateOrderHandler 下單者一律為目前登入的使用者
func CreateOrderHandler(c *gin.Context, orders *services.OrderService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req struct {
		Recipient       string `json:"recipient" binding:"required"`
		ShippingAddress string `json:"shippingAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orders.CreateOrder(c.Request.Context(), caller.ID, services.CreateOrderInput{
		Recipient:       req.Recipient,
		ShippingAddress: req.ShippingAddress,
	}, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "訂單建立成功",
		"orderID": order.OrderID,
		"order":   order,
	})
}

func GetOrderHandler(c *gin.Context, orders *services.OrderService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "orderID")
	if !ok {
		return
	}

	order, err := orders.GetOrder(c.Request.Context(), orderID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func ListUserOrdersHandler(c *gin.Context, orders *services.OrderService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	list, err := orders.ListUserOrders(c.Request.Context(), userID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func CancelOrderHandler(c *gin.Context, orders *services.OrderService) {
	orderTransition(c, "訂單已取消", orders.CancelOrder)
}

func CompleteOrderHandler(c *gin.Context, orders *services.OrderService) {
	orderTransition(c, "訂單已完成", orders.CompleteOrder)
}

func PayOrderHandler(c *gin.Context, orders *services.OrderService) {
	orderTransition(c, "付款成功", orders.PayOrder)
}

func orderTransition(c *gin.Context, message string,
	apply func(ctx context.Context, orderID uint, caller access.Caller) (services.OrderView, error)) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "orderID")
	if !ok {
		return
	}

	order, err := apply(c.Request.Context(), orderID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"orderID": order.OrderID,
		"status":  order.Status,
		"order":   order,
	})
}

func SetOrderStatusHandler(c *gin.Context, orders *services.OrderService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "orderID")
	if !ok {
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orders.SetStatus(c.Request.Context(), orderID, req.Status, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "訂單狀態已更新",
		"orderID": order.OrderID,
		"status":  order.Status,
	})
}

// AutoCompleteOrdersHandler 將超過days天仍為shipped的訂單標記為completed
func AutoCompleteOrdersHandler(c *gin.Context, orders *services.OrderService, defaultDays int) {
	days, ok := intQuery(c, "days", defaultDays)
	if !ok {
		return
	}

	result, err := orders.AutoCompleteStaleOrders(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "已自動完成逾期訂單",
		"completedCount": len(result.OrderIDs),
		"result":         result,
	})
}

func ListAllOrdersHandler(c *gin.Context, orders *services.OrderService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}

	list, err := orders.ListAllOrders(c.Request.Context(), page, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func OrdersByStatusHandler(c *gin.Context, orders *services.OrderService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	list, err := orders.OrdersByStatus(c.Request.Context(), models.OrderStatus(c.Param("status")), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}
