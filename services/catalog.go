package services

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/cache"
	"OnlineStore/metrics"
	"OnlineStore/models"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultSuggestionLimit = 10
	MaxSuggestionLimit     = 50
)

var productSortColumns = map[string]string{
	"id":             "id",
	"name":           "name",
	"price":          "price",
	"stock_quantity": "stock_quantity",
}

// ProductFilter 商品搜尋條件，nil表示不篩選
type ProductFilter struct {
	Type      string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	InStock   bool
	SortBy    string
	SortOrder string
	Page      Page
}

func (f ProductFilter) empty() bool {
	return f.Type == "" && f.Search == "" && f.MinPrice == nil && f.MaxPrice == nil &&
		!f.InStock && (f.SortBy == "" || f.SortBy == "id") && !strings.EqualFold(f.SortOrder, "desc")
}

type ProductInput struct {
	Name          string
	Price         decimal.Decimal
	Type          string
	Description   string
	StockQuantity int
}

// ProductUpdate 只更新有值的欄位
type ProductUpdate struct {
	Name          *string
	Price         *decimal.Decimal
	Type          *string
	Description   *string
	StockQuantity *int
}

type ProductStock struct {
	ProductID     uint   `json:"productID"`
	ProductName   string `json:"productName"`
	StockQuantity int    `json:"stockQuantity"`
	InStock       bool   `json:"inStock"`
}

type ProductSuggestion struct {
	ProductID   uint            `json:"productID"`
	ProductName string          `json:"productName"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
}

type ProductList struct {
	Products   []models.Product `json:"products"`
	TotalCount int64            `json:"totalCount"`
}

type CatalogService struct {
	db    *gorm.DB
	cache cache.ProductCache
	log   *slog.Logger
}

func NewCatalogService(db *gorm.DB, productCache cache.ProductCache, log *slog.Logger) *CatalogService {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{db: db, cache: productCache, log: log}
}

// ListProducts 沒有篩選條件時優先讀Redis，快取為空或失敗時從資料庫重建
func (s *CatalogService) ListProducts(ctx context.Context, filter ProductFilter) (ProductList, error) {
	if filter.Page.Limit == 0 {
		filter.Page.Limit = DefaultPageLimit
	}
	if !filter.empty() || s.cache == nil {
		return s.SearchProducts(ctx, filter)
	}

	products, total, err := s.cache.Range(ctx, filter.Page.Skip, filter.Page.Limit)
	if err == nil {
		return ProductList{Products: products, TotalCount: total}, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		metrics.ProductCacheErrors.WithLabelValues("range").Inc()
		logFromCtx(ctx, s.log).Warn("無法從Redis讀取商品列表", "error", err)
	}

	var all []models.Product
	if err := s.db.WithContext(ctx).Order("id").Find(&all).Error; err != nil {
		return ProductList{}, apperr.Internal(err, "無法讀取商品列表")
	}
	if err := s.cache.Rebuild(ctx, all); err != nil {
		metrics.ProductCacheErrors.WithLabelValues("rebuild").Inc()
		logFromCtx(ctx, s.log).Warn("無法將商品資料寫入Redis", "error", err)
	}

	return ProductList{Products: pageOf(all, filter.Page), TotalCount: int64(len(all))}, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, filter ProductFilter) (ProductList, error) {
	column, ok := productSortColumns[filter.SortBy]
	if filter.SortBy == "" {
		column, ok = "id", true
	}
	if !ok {
		return ProductList{}, apperr.Newf(apperr.KindInvalidArgument, "不支援的排序欄位 %q", filter.SortBy)
	}
	direction := "ASC"
	switch strings.ToLower(filter.SortOrder) {
	case "", "asc":
	case "desc":
		direction = "DESC"
	default:
		return ProductList{}, apperr.New(apperr.KindInvalidArgument, "排序方向必須為asc或desc")
	}
	if filter.MinPrice != nil && filter.MinPrice.IsNegative() || filter.MaxPrice != nil && filter.MaxPrice.IsNegative() {
		return ProductList{}, apperr.New(apperr.KindInvalidArgument, "價格篩選不可為負數")
	}
	if filter.Page.Limit <= 0 {
		filter.Page.Limit = DefaultPageLimit
	}

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		query = query.Where("stock_quantity > 0")
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return ProductList{}, apperr.Internal(err, "查詢商品數量失敗")
	}

	var products []models.Product
	err := query.
		Order(column + " " + direction).
		Order("id").
		Offset(filter.Page.Skip).
		Limit(filter.Page.Limit).
		Find(&products).
		Error
	if err != nil {
		return ProductList{}, apperr.Internal(err, "查詢商品列表失敗")
	}
	return ProductList{Products: products, TotalCount: total}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID uint) (models.Product, error) {
	return findProduct(s.db.WithContext(ctx), productID)
}

func (s *CatalogService) ProductStock(ctx context.Context, productID uint) (ProductStock, error) {
	product, err := findProduct(s.db.WithContext(ctx), productID)
	if err != nil {
		return ProductStock{}, err
	}
	return ProductStock{
		ProductID:     product.ID,
		ProductName:   product.Name,
		StockQuantity: product.StockQuantity,
		InStock:       product.StockQuantity > 0,
	}, nil
}

func (s *CatalogService) ProductTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct().
		Order("type").
		Pluck("type", &types).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢商品類型失敗")
	}
	return types, nil
}

func (s *CatalogService) Suggestions(ctx context.Context, q string, limit int) ([]ProductSuggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "搜尋關鍵字不可為空")
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "建議數量不可超過%d", MaxSuggestionLimit)
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("name LIKE ?", "%"+q+"%").
		Order("id").
		Limit(limit).
		Find(&products).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢搜尋建議失敗")
	}

	suggestions := make([]ProductSuggestion, 0, len(products))
	for _, product := range products {
		suggestions = append(suggestions, ProductSuggestion{
			ProductID:   product.ID,
			ProductName: product.Name,
			Type:        product.Type,
			Price:       product.Price,
		})
	}
	return suggestions, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput, caller access.Caller) (models.Product, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return models.Product{}, err
	}

	product := models.Product{
		Name:          strings.TrimSpace(input.Name),
		Price:         input.Price,
		Type:          strings.TrimSpace(input.Type),
		Description:   input.Description,
		StockQuantity: input.StockQuantity,
	}
	if err := validateProduct(product); err != nil {
		return models.Product{}, err
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return models.Product{}, apperr.Internal(err, "新增商品失敗")
	}
	refreshProductCache(ctx, s.db, s.cache, s.log, []uint{product.ID})
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, productID uint, update ProductUpdate, caller access.Caller) (models.Product, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return models.Product{}, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = findProduct(tx, productID)
		if err != nil {
			return err
		}

		if update.Name != nil {
			product.Name = strings.TrimSpace(*update.Name)
		}
		if update.Price != nil {
			product.Price = *update.Price
		}
		if update.Type != nil {
			product.Type = strings.TrimSpace(*update.Type)
		}
		if update.Description != nil {
			product.Description = *update.Description
		}
		if update.StockQuantity != nil {
			product.StockQuantity = *update.StockQuantity
		}
		if err := validateProduct(product); err != nil {
			return err
		}

		err = tx.Model(&product).Select("name", "price", "type", "description", "stock_quantity").Updates(&product).Error
		if err != nil {
			return apperr.Internal(err, "更新商品失敗")
		}
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}

	refreshProductCache(ctx, s.db, s.cache, s.log, []uint{product.ID})
	return product, nil
}

// DeleteProduct 軟刪除，歷史訂單仍可查到商品名稱
func (s *CatalogService) DeleteProduct(ctx context.Context, productID uint, caller access.Caller) error {
	if err := access.RequireAdmin(caller); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	product, err := findProduct(db, productID)
	if err != nil {
		return err
	}
	if err := db.Delete(&product).Error; err != nil {
		return apperr.Internal(err, "刪除商品失敗")
	}

	refreshProductCache(ctx, s.db, s.cache, s.log, []uint{productID})
	return nil
}

func validateProduct(product models.Product) error {
	switch {
	case product.Name == "":
		return apperr.New(apperr.KindInvalidArgument, "商品名稱不可為空")
	case product.Type == "":
		return apperr.New(apperr.KindInvalidArgument, "商品類型不可為空")
	case product.Price.IsNegative():
		return apperr.New(apperr.KindInvalidArgument, "商品價格不可為負數")
	case product.StockQuantity < 0:
		return apperr.New(apperr.KindInvalidArgument, "商品庫存不可為負數")
	}
	return nil
}

func pageOf(products []models.Product, page Page) []models.Product {
	if page.Skip >= len(products) {
		return []models.Product{}
	}
	end := page.Skip + page.Limit
	if end > len(products) {
		end = len(products)
	}
	return products[page.Skip:end]
}

// refreshProductCache 在交易提交後同步快取，失敗只記錄不影響主流程
func refreshProductCache(ctx context.Context, db *gorm.DB, productCache cache.ProductCache, log *slog.Logger, productIDs []uint) {
	if productCache == nil || len(productIDs) == 0 {
		return
	}
	log = logFromCtx(ctx, log)

	var products []models.Product
	if err := db.WithContext(ctx).Unscoped().Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		metrics.ProductCacheErrors.WithLabelValues("load").Inc()
		log.Warn("同步商品快取時讀取商品失敗", "error", err)
		return
	}

	var live []models.Product
	var removed []uint
	for _, product := range products {
		if product.DeletedAt.Valid {
			removed = append(removed, product.ID)
			continue
		}
		live = append(live, product)
	}

	if err := productCache.Put(ctx, live...); err != nil {
		metrics.ProductCacheErrors.WithLabelValues("put").Inc()
		log.Warn("無法將商品資料更新至Redis", "error", err)
	}
	if err := productCache.Remove(ctx, removed...); err != nil {
		metrics.ProductCacheErrors.WithLabelValues("remove").Inc()
		log.Warn("無法從Redis移除商品", "error", err)
	}
}
