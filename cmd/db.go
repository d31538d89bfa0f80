package cmd

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/models"
	"OnlineStore/services"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// systemCaller 供命令列維運工作使用
var systemCaller = access.Caller{IsAdmin: true}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "建立或更新資料表",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, log, err := openDB()
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		log.Info("資料表遷移完成")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "建立測試帳號與範例商品",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		summary, err := seed(cmd.Context(), a.db, a.users, a.catalog)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "新增使用者 %d 位、商品 %d 項\n", summary.Users, summary.Products)
		return nil
	},
}

type seedUser struct {
	username string
	password string
	isAdmin  bool
}

type seedProduct struct {
	name        string
	price       string
	productType string
	description string
	stock       int
}

var (
	seedUsers = []seedUser{
		{username: "testuser", password: "testpassword"},
		{username: "admin", password: "adminpassword", isAdmin: true},
	}
	seedProducts = []seedProduct{
		{name: "Laptop", price: "5999.99", productType: "Electronics", description: "高效能筆記型電腦", stock: 10},
		{name: "Smart Phone", price: "2999.99", productType: "Electronics", description: "最新款智慧型手機", stock: 20},
		{name: "Sneakers", price: "399.99", productType: "Clothing", description: "舒適運動鞋", stock: 50},
	}
)

type seedSummary struct {
	Users    int
	Products int
}

// seed 可重複執行，已存在的帳號與商品不會重複建立
func seed(ctx context.Context, db *gorm.DB, users *services.UserService, catalog *services.CatalogService) (seedSummary, error) {
	var summary seedSummary

	for _, u := range seedUsers {
		user, err := users.Register(ctx, services.RegisterInput{Username: u.username, Password: u.password})
		if apperr.Is(err, apperr.KindConflict) {
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("建立使用者 %s 失敗: %w", u.username, err)
		}
		if u.isAdmin {
			if _, err := users.SetAdmin(ctx, user.ID, true, systemCaller); err != nil {
				return summary, err
			}
		}
		summary.Users++
	}

	for _, p := range seedProducts {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Product{}).Where("name = ?", p.name).Count(&count).Error; err != nil {
			return summary, err
		}
		if count > 0 {
			continue
		}

		_, err := catalog.CreateProduct(ctx, services.ProductInput{
			Name:          p.name,
			Price:         decimal.RequireFromString(p.price),
			Type:          p.productType,
			Description:   p.description,
			StockQuantity: p.stock,
		}, systemCaller)
		if err != nil {
			return summary, fmt.Errorf("建立商品 %s 失敗: %w", p.name, err)
		}
		summary.Products++
	}

	return summary, nil
}
