package routers

import (
	"OnlineStore/handlers"
	"OnlineStore/jwt"
	"OnlineStore/logger"
	"OnlineStore/metrics"
	"OnlineStore/middleware"
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"log/slog"
	"net/http"
)

// Dependencies 路由需要的全部服務
type Dependencies struct {
	DB               *gorm.DB
	Tokens           *jwt.Manager
	Log              *slog.Logger
	Users            *services.UserService
	Catalog          *services.CatalogService
	Carts            *services.CartService
	Orders           *services.OrderService
	Membership       *services.MembershipEvaluator
	Favorites        *services.FavoriteService
	Reviews          *services.ReviewService
	AutoCompleteDays int
}

func SetupRouters(deps Dependencies) *gin.Engine {
	//建立Gin路由器
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies(nil)

	log := deps.Log
	if log == nil {
		log = logger.L
	}
	router.Use(middleware.RequestIDMiddleware(log))
	router.Use(metrics.Middleware())
	router.Use(middleware.CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	autoCompleteDays := deps.AutoCompleteDays
	if autoCompleteDays <= 0 {
		autoCompleteDays = services.DefaultAutoCompleteDays
	}

	//無須權限，使用中間件檢查是否登入
	api := router.Group("/api/v1", middleware.AuthMiddleware(deps.Tokens, deps.DB))
	{
		//註冊帳號
		api.POST("/register", func(c *gin.Context) {
			handlers.RegisterHandler(c, deps.Users)
		})
		//登入帳號
		api.POST("/login", func(c *gin.Context) {
			handlers.LoginHandler(c, deps.Users)
		})
		//查詢商品列表
		api.GET("/products", func(c *gin.Context) {
			handlers.GetProductsHandler(c, deps.Catalog)
		})
		//依條件搜尋商品
		api.GET("/products/search", func(c *gin.Context) {
			handlers.SearchProductsHandler(c, deps.Catalog)
		})
		//商品類型
		api.GET("/products/types", func(c *gin.Context) {
			handlers.ProductTypesHandler(c, deps.Catalog)
		})
		//搜尋建議
		api.GET("/products/suggestions", func(c *gin.Context) {
			handlers.ProductSuggestionsHandler(c, deps.Catalog)
		})
		//查詢商品詳細資料
		api.GET("/products/:productID", func(c *gin.Context) {
			handlers.GetProductHandler(c, deps.Catalog)
		})
		//查詢商品庫存
		api.GET("/products/:productID/stock", func(c *gin.Context) {
			handlers.ProductStockHandler(c, deps.Catalog)
		})
		//查詢商品評論
		api.GET("/products/:productID/reviews", func(c *gin.Context) {
			handlers.ProductReviewsHandler(c, deps.Reviews)
		})
	}

	//需登入
	auth := api.Group("", middleware.CheckLoginMiddleware())
	{
		//登出
		auth.POST("/logout", func(c *gin.Context) {
			handlers.LogoutHandler(c, deps.Users)
		})
		//更新Token
		auth.POST("/refresh", func(c *gin.Context) {
			handlers.RefreshTokenHandler(c, deps.Users)
		})
		//目前登入的使用者
		auth.GET("/users/me", func(c *gin.Context) {
			handlers.MeHandler(c, deps.Users)
		})
		//查詢使用者資料
		auth.GET("/users/:userID", func(c *gin.Context) {
			handlers.GetUserHandler(c, deps.Users)
		})
		//修改個人資料
		auth.PUT("/users/:userID", func(c *gin.Context) {
			handlers.UpdateProfileHandler(c, deps.Users)
		})
		//查詢並重新計算會員資格
		auth.GET("/users/:userID/member-status", func(c *gin.Context) {
			handlers.MemberStatusHandler(c, deps.Membership)
		})
		auth.PUT("/users/:userID/member-status", func(c *gin.Context) {
			handlers.MemberStatusHandler(c, deps.Membership)
		})
		//使用者的訂單
		auth.GET("/users/:userID/orders", func(c *gin.Context) {
			handlers.ListUserOrdersHandler(c, deps.Orders)
		})
		//收藏
		auth.GET("/users/:userID/favorites", func(c *gin.Context) {
			handlers.ListFavoritesHandler(c, deps.Favorites)
		})
		auth.GET("/users/:userID/favorites/count", func(c *gin.Context) {
			handlers.CountFavoritesHandler(c, deps.Favorites)
		})
		auth.GET("/users/:userID/favorites/:productID", func(c *gin.Context) {
			handlers.CheckFavoriteHandler(c, deps.Favorites)
		})
		auth.POST("/users/:userID/favorites/:productID", func(c *gin.Context) {
			handlers.AddFavoriteHandler(c, deps.Favorites)
		})
		auth.DELETE("/users/:userID/favorites/:productID", func(c *gin.Context) {
			handlers.RemoveFavoriteHandler(c, deps.Favorites)
		})
		//評論
		auth.GET("/users/:userID/reviews", func(c *gin.Context) {
			handlers.UserReviewsHandler(c, deps.Reviews)
		})
		auth.POST("/users/:userID/reviews", func(c *gin.Context) {
			handlers.AddReviewHandler(c, deps.Reviews)
		})

		//查詢購物車
		auth.GET("/carts/:userID", func(c *gin.Context) {
			handlers.GetCartHandler(c, deps.Carts)
		})
		//新增商品至購物車
		auth.POST("/carts/:userID/items", func(c *gin.Context) {
			handlers.AddToCartHandler(c, deps.Carts)
		})
		//修改購物車商品數量
		auth.PUT("/carts/:userID/items", func(c *gin.Context) {
			handlers.UpdateCartItemHandler(c, deps.Carts)
		})
		//移除購物車商品
		auth.DELETE("/carts/:userID/items/:productID", func(c *gin.Context) {
			handlers.RemoveCartItemHandler(c, deps.Carts)
		})
		//清空購物車
		auth.DELETE("/carts/:userID", func(c *gin.Context) {
			handlers.ClearCartHandler(c, deps.Carts)
		})

		//購物車結帳成訂單
		auth.POST("/orders", func(c *gin.Context) {
			handlers.CreateOrderHandler(c, deps.Orders)
		})
		//查詢訂單
		auth.GET("/orders/:orderID", func(c *gin.Context) {
			handlers.GetOrderHandler(c, deps.Orders)
		})
		//取消訂單
		auth.PUT("/orders/:orderID/cancel", func(c *gin.Context) {
			handlers.CancelOrderHandler(c, deps.Orders)
		})
		//完成訂單
		auth.PUT("/orders/:orderID/complete", func(c *gin.Context) {
			handlers.CompleteOrderHandler(c, deps.Orders)
		})
		//付款
		auth.POST("/orders/:orderID/pay", func(c *gin.Context) {
			handlers.PayOrderHandler(c, deps.Orders)
		})
	}

	//需管理員權限
	admin := auth.Group("/admin", middleware.CheckAdminPermissionMiddleware())
	{
		admin.GET("/users", func(c *gin.Context) {
			handlers.ListUsersHandler(c, deps.Users)
		})
		admin.GET("/users/:userID/admin-status", func(c *gin.Context) {
			handlers.AdminStatusHandler(c, deps.Users)
		})
		admin.PUT("/users/:userID/admin-status", func(c *gin.Context) {
			handlers.SetAdminHandler(c, deps.Users)
		})
		admin.GET("/users/:userID/favorites", func(c *gin.Context) {
			handlers.UserFavoritesHandler(c, deps.Favorites)
		})

		//商品管理
		admin.POST("/products", func(c *gin.Context) {
			handlers.CreateProductHandler(c, deps.Catalog)
		})
		admin.PUT("/products/:productID", func(c *gin.Context) {
			handlers.UpdateProductHandler(c, deps.Catalog)
		})
		admin.DELETE("/products/:productID", func(c *gin.Context) {
			handlers.DeleteProductHandler(c, deps.Catalog)
		})

		//訂單管理
		admin.GET("/orders", func(c *gin.Context) {
			handlers.ListAllOrdersHandler(c, deps.Orders)
		})
		admin.GET("/orders/status/:status", func(c *gin.Context) {
			handlers.OrdersByStatusHandler(c, deps.Orders)
		})
		admin.PUT("/orders/auto-complete", func(c *gin.Context) {
			handlers.AutoCompleteOrdersHandler(c, deps.Orders, autoCompleteDays)
		})
		admin.PUT("/orders/:orderID/status", func(c *gin.Context) {
			handlers.SetOrderStatusHandler(c, deps.Orders)
		})

		admin.GET("/carts", func(c *gin.Context) {
			handlers.ListCartsHandler(c, deps.Carts)
		})
		admin.GET("/favorites", func(c *gin.Context) {
			handlers.ListAllFavoritesHandler(c, deps.Favorites)
		})
		admin.GET("/reviews", func(c *gin.Context) {
			handlers.ListAllReviewsHandler(c, deps.Reviews)
		})
		admin.DELETE("/reviews/:userID/:productID", func(c *gin.Context) {
			handlers.DeleteReviewHandler(c, deps.Reviews)
		})
	}

	return router
}
