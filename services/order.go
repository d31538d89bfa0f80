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
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultAutoCompleteDays = 15

type CreateOrderInput struct {
	Recipient       string
	ShippingAddress string
}

type OrderItemView struct {
	ProductID   uint            `json:"productID"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderView struct {
	OrderID         uint               `json:"orderID"`
	UserID          uint               `json:"userID"`
	Recipient       string             `json:"recipient"`
	ShippingAddress string             `json:"shippingAddress"`
	Status          models.OrderStatus `json:"status"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	CreatedAt       time.Time          `json:"createdAt"`
	Items           []OrderItemView    `json:"items"`
}

type AutoCompleteResult struct {
	Cutoff   time.Time `json:"cutoff"`
	OrderIDs []uint    `json:"orderIDs"`
	UserIDs  []uint    `json:"userIDs"`
}

type OrderService struct {
	db       *gorm.DB
	cache    cache.ProductCache
	notifier MembershipNotifier
	log      *slog.Logger
	now      func() time.Time
}

// NewOrderService cache與notifier可為nil
func NewOrderService(db *gorm.DB, productCache cache.ProductCache, notifier MembershipNotifier, log *slog.Logger) *OrderService {
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{
		db:       db,
		cache:    productCache,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// CreateOrder 將購物車轉為訂單，扣庫存、凍結單價並移除已下單的購物車商品，全部在同一個交易中完成
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, input CreateOrderInput, caller access.Caller) (OrderView, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return OrderView{}, err
	}
	input.Recipient = strings.TrimSpace(input.Recipient)
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	if input.Recipient == "" || input.ShippingAddress == "" {
		return OrderView{}, apperr.New(apperr.KindInvalidArgument, "收件人與收件地址不可為空")
	}

	var (
		order   models.Order
		names   = map[uint]string{}
		touched []uint
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "購物車不存在")
		}
		if err != nil {
			return apperr.Internal(err, "查詢購物車失敗")
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("product_id").Find(&items).Error; err != nil {
			return apperr.Internal(err, "查詢購物車商品失敗")
		}
		if len(items) == 0 {
			return apperr.New(apperr.KindEmptyCart, "購物車是空的")
		}

		productIDs := make([]uint, 0, len(items))
		itemIDs := make([]uint, 0, len(items))
		for _, item := range items {
			if item.Quantity <= 0 {
				return apperr.Newf(apperr.KindInvalidArgument, "購物車商品%d的數量無效", item.ProductID)
			}
			productIDs = append(productIDs, item.ProductID)
			itemIDs = append(itemIDs, item.ID)
		}

		//依商品ID遞增順序鎖定，避免交錯鎖定造成死結
		var products []models.Product
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", productIDs).
			Order("id").
			Find(&products).
			Error
		if err != nil {
			return apperr.Internal(err, "鎖定商品庫存失敗")
		}
		locked := make(map[uint]models.Product, len(products))
		for _, product := range products {
			locked[product.ID] = product
		}

		var shortfalls []apperr.Shortfall
		for _, item := range items {
			product, ok := locked[item.ProductID]
			if !ok {
				shortfalls = append(shortfalls, apperr.Shortfall{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Available: 0,
				})
				continue
			}
			if product.StockQuantity < item.Quantity {
				shortfalls = append(shortfalls, apperr.Shortfall{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   item.Quantity,
					Available:   product.StockQuantity,
				})
			}
		}
		if len(shortfalls) > 0 {
			metrics.StockShortfalls.Inc()
			return apperr.InsufficientStock(shortfalls)
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product := locked[item.ProductID]
			orderItem := models.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			}
			orderItems = append(orderItems, orderItem)
			total = total.Add(orderItem.Subtotal())
			names[product.ID] = product.Name
		}

		order = models.Order{
			UserID:          userID,
			OrderItems:      orderItems,
			TotalAmount:     total,
			Recipient:       input.Recipient,
			ShippingAddress: input.ShippingAddress,
			Status:          models.OrderStatusPending,
		}
		order.CreatedAt = s.now()
		if err := tx.Create(&order).Error; err != nil {
			return apperr.Internal(err, "建立訂單失敗")
		}

		for _, item := range items {
			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if result.Error != nil {
				return apperr.Internal(result.Error, "扣除庫存失敗")
			}
			if result.RowsAffected != 1 {
				product := locked[item.ProductID]
				return apperr.InsufficientStock([]apperr.Shortfall{{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   item.Quantity,
					Available:   product.StockQuantity,
				}})
			}
		}

		if err := tx.Where("id IN ?", itemIDs).Delete(&models.CartItem{}).Error; err != nil {
			return apperr.Internal(err, "清除購物車商品失敗")
		}

		touched = productIDs
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	metrics.OrdersCreated.Inc()
	logFromCtx(ctx, s.log).Info("訂單已建立", "orderID", order.ID, "userID", userID, "total", order.TotalAmount.StringFixed(2))

	s.notify(userID)
	refreshProductCache(ctx, s.db, s.cache, s.log, touched)

	for i := range order.OrderItems {
		order.OrderItems[i].Product.Name = names[order.OrderItems[i].ProductID]
	}
	return buildOrderView(order), nil
}

// CancelOrder 只能取消待處理訂單，同一交易內回補庫存並更新狀態
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, caller access.Caller) (OrderView, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := access.RequireOwnerOrAdmin(order.UserID, caller); err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return apperr.Newf(apperr.KindInvalidState, "只有待處理的訂單可以取消，目前狀態: %s", order.Status)
		}

		items := append([]models.OrderItem(nil), order.OrderItems...)
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, item := range items {
			err := tx.Unscoped().Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).
				Error
			if err != nil {
				return apperr.Internal(err, "回補庫存失敗")
			}
		}

		return updateOrderStatus(tx, &order, models.OrderStatusCancelled)
	})
	if err != nil {
		return OrderView{}, err
	}

	metrics.OrderTransitions.WithLabelValues(string(models.OrderStatusCancelled)).Inc()
	logFromCtx(ctx, s.log).Info("訂單已取消", "orderID", order.ID, "userID", order.UserID)

	productIDs := make([]uint, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		productIDs = append(productIDs, item.ProductID)
	}
	refreshProductCache(ctx, s.db, s.cache, s.log, productIDs)

	return s.GetOrder(ctx, order.ID, caller)
}

// CompleteOrder 只有訂單本人可以確認收貨
func (s *OrderService) CompleteOrder(ctx context.Context, orderID uint, caller access.Caller) (OrderView, error) {
	order, err := s.transition(ctx, orderID, models.OrderStatusShipped, models.OrderStatusCompleted, func(order models.Order) error {
		return access.RequireOwner(order.UserID, caller)
	})
	if err != nil {
		return OrderView{}, err
	}

	s.notify(order.UserID)
	return s.GetOrder(ctx, order.ID, caller)
}

func (s *OrderService) PayOrder(ctx context.Context, orderID uint, caller access.Caller) (OrderView, error) {
	order, err := s.transition(ctx, orderID, models.OrderStatusPending, models.OrderStatusPaid, func(order models.Order) error {
		return access.RequireOwnerOrAdmin(order.UserID, caller)
	})
	if err != nil {
		return OrderView{}, err
	}
	return s.GetOrder(ctx, order.ID, caller)
}

// SetStatus 管理員直接覆寫訂單狀態，不檢查狀態機
func (s *OrderService) SetStatus(ctx context.Context, orderID uint, status models.OrderStatus, caller access.Caller) (OrderView, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return OrderView{}, err
	}
	if !status.Valid() {
		return OrderView{}, apperr.Newf(apperr.KindInvalidArgument, "無效的訂單狀態 %q", status)
	}

	var previous models.OrderStatus
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		previous = order.Status
		if previous == status {
			return nil
		}
		return updateOrderStatus(tx, &order, status)
	})
	if err != nil {
		return OrderView{}, err
	}

	if previous != status {
		metrics.OrderTransitions.WithLabelValues(string(status)).Inc()
		logFromCtx(ctx, s.log).Info("管理員更新訂單狀態", "orderID", orderID, "from", previous, "to", status)
		if previous == models.OrderStatusCompleted || status == models.OrderStatusCompleted {
			s.notify(order.UserID)
		}
	}
	return s.GetOrder(ctx, orderID, caller)
}

// AutoCompleteStaleOrders 將超過cutoffDays天仍為已出貨的訂單標記為完成，每位使用者只重新評估一次會員資格
func (s *OrderService) AutoCompleteStaleOrders(ctx context.Context, cutoffDays int) (AutoCompleteResult, error) {
	if cutoffDays < 0 {
		return AutoCompleteResult{}, apperr.New(apperr.KindInvalidArgument, "天數不可為負數")
	}

	result := AutoCompleteResult{
		Cutoff:   s.now().Add(-time.Duration(cutoffDays) * 24 * time.Hour),
		OrderIDs: []uint{},
		UserIDs:  []uint{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "user_id").
			Where("status = ? AND created_at <= ?", models.OrderStatusShipped, result.Cutoff).
			Order("id").
			Find(&orders).
			Error
		if err != nil {
			return apperr.Internal(err, "查詢待完成訂單失敗")
		}
		if len(orders) == 0 {
			return nil
		}

		seen := make(map[uint]bool)
		for _, order := range orders {
			result.OrderIDs = append(result.OrderIDs, order.ID)
			if !seen[order.UserID] {
				seen[order.UserID] = true
				result.UserIDs = append(result.UserIDs, order.UserID)
			}
		}

		err = tx.Model(&models.Order{}).
			Where("id IN ?", result.OrderIDs).
			Update("status", models.OrderStatusCompleted).
			Error
		if err != nil {
			return apperr.Internal(err, "更新訂單狀態失敗")
		}
		return nil
	})
	if err != nil {
		return AutoCompleteResult{}, err
	}

	if len(result.OrderIDs) > 0 {
		metrics.OrderTransitions.WithLabelValues(string(models.OrderStatusCompleted)).Add(float64(len(result.OrderIDs)))
		logFromCtx(ctx, s.log).Info("自動完成逾期訂單", "orders", len(result.OrderIDs), "users", len(result.UserIDs))
	}
	if s.notifier != nil {
		for _, userID := range result.UserIDs {
			if err := s.notifier.NotifyWait(ctx, userID); err != nil {
				metrics.MembershipDropped.Inc()
				logFromCtx(ctx, s.log).Error("無法排入會員評估", "userID", userID, "error", err)
			}
		}
	}
	return result, nil
}

// ListUserOrders 依建立時間由新到舊
func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, caller access.Caller) ([]OrderView, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.withItems(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢訂單列表失敗")
	}
	return buildOrderViews(orders), nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint, caller access.Caller) (OrderView, error) {
	var order models.Order
	err := s.withItems(s.db.WithContext(ctx)).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return OrderView{}, apperr.New(apperr.KindNotFound, "訂單不存在")
	}
	if err != nil {
		return OrderView{}, apperr.Internal(err, "查詢訂單失敗")
	}
	if err := access.RequireOwnerOrAdmin(order.UserID, caller); err != nil {
		return OrderView{}, err
	}
	return buildOrderView(order), nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, page Page, caller access.Caller) ([]OrderView, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.withItems(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&orders).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢訂單列表失敗")
	}
	return buildOrderViews(orders), nil
}

func (s *OrderService) OrdersByStatus(ctx context.Context, status models.OrderStatus, caller access.Caller) ([]OrderView, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "無效的訂單狀態 %q", status)
	}

	var orders []models.Order
	err := s.withItems(s.db.WithContext(ctx)).
		Where("status = ?", status).
		Order("created_at DESC, id DESC").
		Find(&orders).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢訂單列表失敗")
	}
	return buildOrderViews(orders), nil
}

// transition 鎖定訂單並檢查目前狀態後更新，authorize在狀態檢查前執行
func (s *OrderService) transition(ctx context.Context, orderID uint, from, to models.OrderStatus, authorize func(models.Order) error) (models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(order); err != nil {
			return err
		}
		if order.Status != from {
			return apperr.Newf(apperr.KindInvalidState, "訂單狀態必須為 %s，目前狀態: %s", from, order.Status)
		}
		return updateOrderStatus(tx, &order, to)
	})
	if err != nil {
		return models.Order{}, err
	}

	metrics.OrderTransitions.WithLabelValues(string(to)).Inc()
	logFromCtx(ctx, s.log).Info("訂單狀態已更新", "orderID", order.ID, "from", from, "to", to)
	return order, nil
}

func (s *OrderService) notify(userID uint) {
	if s.notifier != nil {
		s.notifier.Notify(userID)
	}
}

// withItems 已下架的商品仍需顯示在歷史訂單中
func (s *OrderService) withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("OrderItems.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

func lockOrder(tx *gorm.DB, orderID uint) (models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("OrderItems").
		First(&order, orderID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order, apperr.New(apperr.KindNotFound, "訂單不存在")
	}
	if err != nil {
		return order, apperr.Internal(err, "查詢訂單失敗")
	}
	return order, nil
}

func updateOrderStatus(tx *gorm.DB, order *models.Order, status models.OrderStatus) error {
	err := tx.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", status).
		Error
	if err != nil {
		return apperr.Internal(err, "更新訂單狀態失敗")
	}
	order.Status = status
	return nil
}

func buildOrderViews(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, buildOrderView(order))
	}
	return views
}

func buildOrderView(order models.Order) OrderView {
	view := OrderView{
		OrderID:         order.ID,
		UserID:          order.UserID,
		Recipient:       order.Recipient,
		ShippingAddress: order.ShippingAddress,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		CreatedAt:       order.CreatedAt,
		Items:           make([]OrderItemView, 0, len(order.OrderItems)),
	}
	for _, item := range order.OrderItems {
		view.Items = append(view.Items, OrderItemView{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			Subtotal:    item.Subtotal(),
		})
	}
	return view
}
