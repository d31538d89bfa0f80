package cmd

import (
	"OnlineStore/models"
	"OnlineStore/services"
	"OnlineStore/storetest"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedIsRepeatable(t *testing.T) {
	db := storetest.OpenDB(t)
	users := services.NewUserService(db, nil, discardLogger())
	catalog := services.NewCatalogService(db, nil, discardLogger())
	ctx := context.Background()

	summary, err := seed(ctx, db, users, catalog)
	require.NoError(t, err)
	assert.Equal(t, seedSummary{Users: 2, Products: 3}, summary)

	summary, err = seed(ctx, db, users, catalog)
	require.NoError(t, err)
	assert.Equal(t, seedSummary{}, summary)

	var testUser models.User
	require.NoError(t, db.Where("username = ?", "testuser").First(&testUser).Error)
	assert.False(t, testUser.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(testUser.Password), []byte("testpassword")))

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsAdmin)

	var laptop models.Product
	require.NoError(t, db.Where("name = ?", "Laptop").First(&laptop).Error)
	assert.Equal(t, "5999.99", laptop.Price.StringFixed(2))

	var carts int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&carts).Error)
	assert.Equal(t, int64(2), carts)
}

func TestRunAutoCompleteSweepsUntilCancelled(t *testing.T) {
	db := storetest.OpenDB(t)
	alice := storetest.CreateUser(t, db, "alice", false)
	p := storetest.CreateProduct(t, db, "P", "10.00", 5)

	order := models.Order{
		UserID:          alice.ID,
		Recipient:       "Alice",
		ShippingAddress: "Taipei",
		Status:          models.OrderStatusShipped,
		OrderItems:      []models.OrderItem{{ProductID: p.ID, Quantity: 1, Price: p.Price}},
	}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Model(&order).Update("created_at", time.Now().UTC().AddDate(0, 0, -20)).Error)

	orders := services.NewOrderService(db, nil, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runAutoComplete(ctx, orders, 15, 10*time.Millisecond, discardLogger())
	}()

	require.Eventually(t, func() bool {
		var current models.Order
		if err := db.First(&current, order.ID).Error; err != nil {
			return false
		}
		return current.Status == models.OrderStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("自動完成迴圈未在取消後結束")
	}
}

func TestRunAutoCompleteDisabled(t *testing.T) {
	orders := services.NewOrderService(storetest.OpenDB(t), nil, nil, discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		runAutoComplete(context.Background(), orders, 15, 0, discardLogger())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("interval為0時應立即返回")
	}
}
