package services

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/models"
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartLine struct {
	ProductID   uint            `json:"productID"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	CartID      uint            `json:"cartID"`
	UserID      uint            `json:"userID"`
	Items       []CartLine      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
}

type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// GetCart 取得購物車內容，不存在時建立空購物車
func (s *CartService) GetCart(ctx context.Context, userID uint, caller access.Caller) (CartView, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return CartView{}, err
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return s.loadView(ctx, cart)
}

// AddItem 新增或累加購物車商品，不會異動庫存
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int, caller access.Caller) (CartView, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return CartView{}, err
	}
	if err := access.ValidateQuantity(quantity); err != nil {
		return CartView{}, err
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := findProduct(tx, productID)
		if err != nil {
			return err
		}

		if quantity > product.StockQuantity {
			return cartShortfall(product, quantity)
		}

		// 同一商品已在購物車時不新增第二行，改為在既有數量上累加
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity})
		if created.Error != nil {
			return apperr.Internal(created.Error, "更新購物車失敗")
		}
		if created.RowsAffected == 1 {
			return nil
		}

		var item models.CartItem
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			First(&item).
			Error
		if err != nil {
			return apperr.Internal(err, "查詢購物車商品失敗")
		}

		limit := product.StockQuantity - quantity
		if item.Quantity > limit {
			return cartShortfall(product, saturatingAdd(item.Quantity, quantity))
		}
		updated := tx.Model(&models.CartItem{}).
			Where("id = ? AND quantity <= ?", item.ID, limit).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if updated.Error != nil {
			return apperr.Internal(updated.Error, "更新購物車失敗")
		}
		if updated.RowsAffected == 0 {
			return cartShortfall(product, saturatingAdd(item.Quantity, quantity))
		}
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	return s.loadView(ctx, cart)
}

func cartShortfall(product models.Product, requested int) error {
	return apperr.InsufficientStock([]apperr.Shortfall{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   requested,
		Available:   product.StockQuantity,
	}})
}

// saturatingAdd 兩個非負數相加，溢位時回傳math.MaxInt
func saturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// UpdateItem 覆寫商品數量，數量小於等於0時刪除該商品
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uint, quantity int, caller access.Caller) (CartView, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return CartView{}, err
	}

	cart, err := s.findCart(s.db.WithContext(ctx), userID)
	if err != nil {
		return CartView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "購物車中沒有此商品")
		}
		if err != nil {
			return apperr.Internal(err, "查詢購物車商品失敗")
		}

		if quantity <= 0 {
			if err := tx.Delete(&item).Error; err != nil {
				return apperr.Internal(err, "刪除購物車商品失敗")
			}
			return nil
		}

		product, err := findProduct(tx, productID)
		if err != nil {
			return err
		}
		if quantity > product.StockQuantity {
			return cartShortfall(product, quantity)
		}

		if err := tx.Model(&item).Update("quantity", quantity).Error; err != nil {
			return apperr.Internal(err, "更新購物車失敗")
		}
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	return s.loadView(ctx, cart)
}

// RemoveItem 商品不在購物車中也視為成功
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint, caller access.Caller) error {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	cart, err := s.findCart(db, userID)
	if err != nil {
		return err
	}

	err = db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Delete(&models.CartItem{}).Error
	if err != nil {
		return apperr.Internal(err, "刪除購物車商品失敗")
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID uint, caller access.Caller) error {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	cart, err := s.findCart(db, userID)
	if err != nil {
		return err
	}

	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return apperr.Internal(err, "清空購物車失敗")
	}
	return nil
}

// ListCarts 管理員查看所有購物車
func (s *CartService) ListCarts(ctx context.Context, caller access.Caller) ([]CartView, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var carts []models.Cart
	err := s.db.WithContext(ctx).
		Preload("CartItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("CartItems.Product").
		Order("id").
		Find(&carts).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢購物車列表失敗")
	}

	views := make([]CartView, 0, len(carts))
	for _, cart := range carts {
		views = append(views, buildCartView(cart))
	}
	return views, nil
}

func (s *CartService) findCart(db *gorm.DB, userID uint) (models.Cart, error) {
	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart, apperr.New(apperr.KindNotFound, "購物車不存在")
	}
	if err != nil {
		return cart, apperr.Internal(err, "查詢購物車失敗")
	}
	return cart, nil
}

// getOrCreateCart 併發建立時以唯一索引擋下重複，失敗後改為讀取既有購物車
func (s *CartService) getOrCreateCart(ctx context.Context, userID uint) (models.Cart, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Select("id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Cart{}, apperr.New(apperr.KindNotFound, "使用者不存在")
		}
		return models.Cart{}, apperr.Internal(err, "查詢使用者失敗")
	}

	var cart models.Cart
	err := db.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error
	if err == nil {
		return cart, nil
	}
	return s.findCart(db, userID)
}

func (s *CartService) loadView(ctx context.Context, cart models.Cart) (CartView, error) {
	var items []models.CartItem
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cart.ID).
		Order("id").
		Find(&items).
		Error
	if err != nil {
		return CartView{}, apperr.Internal(err, "查詢購物車商品失敗")
	}
	cart.CartItems = items
	return buildCartView(cart), nil
}

// buildCartView 略過已下架的商品
func buildCartView(cart models.Cart) CartView {
	view := CartView{
		CartID:      cart.ID,
		UserID:      cart.UserID,
		Items:       make([]CartLine, 0, len(cart.CartItems)),
		TotalAmount: decimal.Zero,
	}
	for _, item := range cart.CartItems {
		if item.Product.ID == 0 {
			continue
		}
		subtotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Items = append(view.Items, CartLine{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			UnitPrice:   item.Product.Price,
			Quantity:    item.Quantity,
			Subtotal:    subtotal,
		})
		view.TotalAmount = view.TotalAmount.Add(subtotal)
		view.ItemCount += item.Quantity
	}
	return view
}

func findProduct(db *gorm.DB, productID uint) (models.Product, error) {
	var product models.Product
	err := db.First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return product, apperr.New(apperr.KindNotFound, "商品不存在")
	}
	if err != nil {
		return product, apperr.Internal(err, "查詢商品失敗")
	}
	return product, nil
}
