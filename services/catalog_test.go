package services

import (
	"OnlineStore/apperr"
	"OnlineStore/cache"
	"OnlineStore/models"
	"OnlineStore/storetest"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCatalog(t *testing.T, db *gorm.DB) []models.Product {
	t.Helper()
	products := []models.Product{
		{Name: "Laptop", Price: decimal.RequireFromString("5999.99"), Type: "Electronics", Description: "High performance laptop", StockQuantity: 50},
		{Name: "Smart Phone", Price: decimal.RequireFromString("2999.99"), Type: "Electronics", Description: "Latest smartphone", StockQuantity: 100},
		{Name: "Sneakers", Price: decimal.RequireFromString("399.99"), Type: "Clothing", Description: "Comfortable sneakers", StockQuantity: 0},
	}
	require.NoError(t, db.Create(&products).Error)
	return products
}

func TestListProductsUsesCache(t *testing.T) {
	db := storetest.OpenDB(t)
	rdb, mr := storetest.Redis(t)
	productCache := cache.NewRedisProductCache(rdb)
	svc := NewCatalogService(db, productCache, nil)
	ctx := context.Background()
	products := seedCatalog(t, db)

	list, err := svc.ListProducts(ctx, ProductFilter{Page: Page{Limit: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.TotalCount)
	require.Len(t, list.Products, 2)
	assert.Equal(t, "Laptop", list.Products[0].Name)
	assert.True(t, mr.Exists("products"))

	// 直接改資料庫不會反映在快取上，證明讀取來自Redis
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", products[0].ID).Update("name", "Renamed").Error)
	list, err = svc.ListProducts(ctx, ProductFilter{Page: Page{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, "Laptop", list.Products[0].Name)

	// 管理員更新會同步快取
	name := "Gaming Laptop"
	_, err = svc.UpdateProduct(ctx, products[0].ID, ProductUpdate{Name: &name}, admin)
	require.NoError(t, err)
	list, err = svc.ListProducts(ctx, ProductFilter{Page: Page{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, "Gaming Laptop", list.Products[0].Name)

	require.NoError(t, svc.DeleteProduct(ctx, products[0].ID, admin))
	list, err = svc.ListProducts(ctx, ProductFilter{Page: Page{Limit: 10}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.TotalCount)
	assert.Equal(t, "Smart Phone", list.Products[0].Name)
}

func TestListProductsFallsBackWhenRedisDown(t *testing.T) {
	db := storetest.OpenDB(t)
	rdb, mr := storetest.Redis(t)
	svc := NewCatalogService(db, cache.NewRedisProductCache(rdb), nil)
	seedCatalog(t, db)
	mr.Close()

	list, err := svc.ListProducts(context.Background(), ProductFilter{Page: Page{Skip: 1, Limit: 5}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.TotalCount)
	require.Len(t, list.Products, 2)
	assert.Equal(t, "Smart Phone", list.Products[0].Name)
}

func TestSearchProducts(t *testing.T) {
	db := storetest.OpenDB(t)
	svc := NewCatalogService(db, nil, nil)
	ctx := context.Background()
	seedCatalog(t, db)

	minPrice := decimal.RequireFromString("1000")
	maxPrice := decimal.RequireFromString("3000")

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{name: "by type", filter: ProductFilter{Type: "Electronics"}, want: []string{"Laptop", "Smart Phone"}},
		{name: "by name", filter: ProductFilter{Search: "phone"}, want: []string{"Smart Phone"}},
		{name: "price range", filter: ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice}, want: []string{"Smart Phone"}},
		{name: "in stock", filter: ProductFilter{InStock: true}, want: []string{"Laptop", "Smart Phone"}},
		{name: "sort by price desc", filter: ProductFilter{SortBy: "price", SortOrder: "desc"}, want: []string{"Laptop", "Smart Phone", "Sneakers"}},
		{name: "sort by price asc", filter: ProductFilter{SortBy: "price"}, want: []string{"Sneakers", "Smart Phone", "Laptop"}},
		{name: "paged", filter: ProductFilter{Page: Page{Skip: 1, Limit: 1}}, want: []string{"Smart Phone"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := svc.SearchProducts(ctx, tc.filter)
			require.NoError(t, err)
			var names []string
			for _, p := range list.Products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}

	_, err := svc.SearchProducts(ctx, ProductFilter{SortBy: "description; DROP TABLE products"})
	requireKind(t, err, apperr.KindInvalidArgument)
	_, err = svc.SearchProducts(ctx, ProductFilter{SortOrder: "sideways"})
	requireKind(t, err, apperr.KindInvalidArgument)
}

func TestProductLookups(t *testing.T) {
	db := storetest.OpenDB(t)
	svc := NewCatalogService(db, nil, nil)
	ctx := context.Background()
	products := seedCatalog(t, db)

	stock, err := svc.ProductStock(ctx, products[2].ID)
	require.NoError(t, err)
	assert.False(t, stock.InStock)
	assert.Equal(t, "Sneakers", stock.ProductName)

	_, err = svc.GetProduct(ctx, 404)
	requireKind(t, err, apperr.KindNotFound)

	types, err := svc.ProductTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clothing", "Electronics"}, types)

	suggestions, err := svc.Suggestions(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	_, err = svc.Suggestions(ctx, "", 10)
	requireKind(t, err, apperr.KindInvalidArgument)
	_, err = svc.Suggestions(ctx, "a", 51)
	requireKind(t, err, apperr.KindInvalidArgument)
}

func TestProductAdminWrites(t *testing.T) {
	db := storetest.OpenDB(t)
	svc := NewCatalogService(db, nil, nil)
	ctx := context.Background()
	user := storetest.CreateUser(t, db, "alice", false)

	input := ProductInput{Name: "Desk", Price: decimal.RequireFromString("120.50"), Type: "Furniture", StockQuantity: 3}

	_, err := svc.CreateProduct(ctx, input, callerOf(user.ID))
	requireKind(t, err, apperr.KindForbidden)

	bad := input
	bad.StockQuantity = -1
	_, err = svc.CreateProduct(ctx, bad, admin)
	requireKind(t, err, apperr.KindInvalidArgument)

	product, err := svc.CreateProduct(ctx, input, admin)
	require.NoError(t, err)
	assert.NotZero(t, product.ID)

	negative := decimal.RequireFromString("-1")
	_, err = svc.UpdateProduct(ctx, product.ID, ProductUpdate{Price: &negative}, admin)
	requireKind(t, err, apperr.KindInvalidArgument)

	stock := 0
	updated, err := svc.UpdateProduct(ctx, product.ID, ProductUpdate{StockQuantity: &stock}, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)
	assert.Equal(t, "Desk", updated.Name)
	assert.Equal(t, 0, storetest.Stock(t, db, product.ID))

	require.NoError(t, svc.DeleteProduct(ctx, product.ID, admin))
	requireKind(t, svc.DeleteProduct(ctx, product.ID, admin), apperr.KindNotFound)
}
