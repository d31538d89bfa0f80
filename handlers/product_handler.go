package handlers

import (
	"OnlineStore/apperr"
	"OnlineStore/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"net/http"
	"strconv"
)

func decimalQuery(c *gin.Context, name string) (*decimal.Decimal, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		respondError(c, apperr.Newf(apperr.KindInvalidArgument, "%s格式錯誤", name))
		return nil, false
	}
	return &value, true
}

func productFilterQuery(c *gin.Context) (services.ProductFilter, bool) {
	page, ok := pageQuery(c)
	if !ok {
		return services.ProductFilter{}, false
	}
	minPrice, ok := decimalQuery(c, "min_price")
	if !ok {
		return services.ProductFilter{}, false
	}
	maxPrice, ok := decimalQuery(c, "max_price")
	if !ok {
		return services.ProductFilter{}, false
	}

	inStock := false
	if raw := c.Query("in_stock"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, apperr.New(apperr.KindInvalidArgument, "in_stock格式錯誤"))
			return services.ProductFilter{}, false
		}
		inStock = parsed
	}

	return services.ProductFilter{
		Type:      c.Query("type"),
		Search:    c.Query("search"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		InStock:   inStock,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      page,
	}, true
}

// GetProductsHandler 無篩選條件時走Redis快取
func GetProductsHandler(c *gin.Context, catalog *services.CatalogService) {
	filter, ok := productFilterQuery(c)
	if !ok {
		return
	}

	list, err := catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func SearchProductsHandler(c *gin.Context, catalog *services.CatalogService) {
	filter, ok := productFilterQuery(c)
	if !ok {
		return
	}

	list, err := catalog.SearchProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func GetProductHandler(c *gin.Context, catalog *services.CatalogService) {
	productID, ok := uintParam(c, "productID")
	if !ok {
		return
	}

	product, err := catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func ProductStockHandler(c *gin.Context, catalog *services.CatalogService) {
	productID, ok := uintParam(c, "productID")
	if !ok {
		return
	}

	stock, err := catalog.ProductStock(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func ProductTypesHandler(c *gin.Context, catalog *services.CatalogService) {
	types, err := catalog.ProductTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

func ProductSuggestionsHandler(c *gin.Context, catalog *services.CatalogService) {
	limit, ok := intQuery(c, "limit", services.DefaultSuggestionLimit)
	if !ok {
		return
	}

	suggestions, err := catalog.Suggestions(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func CreateProductHandler(c *gin.Context, catalog *services.CatalogService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req struct {
		Name          string          `json:"name" binding:"required"`
		Price         decimal.Decimal `json:"price"`
		Type          string          `json:"type" binding:"required"`
		Description   string          `json:"description"`
		StockQuantity int             `json:"stockQuantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := catalog.CreateProduct(c.Request.Context(), services.ProductInput{
		Name:          req.Name,
		Price:         req.Price,
		Type:          req.Type,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
	}, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "商品已新增",
		"productID": product.ID,
		"product":   product,
	})
}

func UpdateProductHandler(c *gin.Context, catalog *services.CatalogService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	productID, ok := uintParam(c, "productID")
	if !ok {
		return
	}

	var req struct {
		Name          *string          `json:"name"`
		Price         *decimal.Decimal `json:"price"`
		Type          *string          `json:"type"`
		Description   *string          `json:"description"`
		StockQuantity *int             `json:"stockQuantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := catalog.UpdateProduct(c.Request.Context(), productID, services.ProductUpdate{
		Name:          req.Name,
		Price:         req.Price,
		Type:          req.Type,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
	}, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "商品已更新",
		"product": product,
	})
}

func DeleteProductHandler(c *gin.Context, catalog *services.CatalogService) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	productID, ok := uintParam(c, "productID")
	if !ok {
		return
	}

	if err := catalog.DeleteProduct(c.Request.Context(), productID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "商品已刪除"})
}
