package services

import (
	"OnlineStore/apperr"
	"OnlineStore/models"
	"OnlineStore/storetest"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"
)

var evalNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func newEvaluator(db *gorm.DB) *MembershipEvaluator {
	e := NewMembershipEvaluator(db, DefaultMembershipWindowDays)
	e.now = func() time.Time { return evalNow }
	return e
}

func insertOrder(t *testing.T, db *gorm.DB, userID uint, status models.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		UserID:          userID,
		TotalAmount:     decimal.RequireFromString("10.00"),
		Recipient:       "R",
		ShippingAddress: "A",
		Status:          status,
	}
	order.CreatedAt = createdAt
	require.NoError(t, db.Create(&order).Error)
	return order
}

func isMember(t *testing.T, db *gorm.DB, userID uint) bool {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.IsMember
}

func TestEvaluateIsIdempotent(t *testing.T) {
	db := storetest.OpenDB(t)
	e := newEvaluator(db)
	ctx := context.Background()
	user := storetest.CreateUser(t, db, "alice", false)

	insertOrder(t, db, user.ID, models.OrderStatusCompleted, evalNow.AddDate(0, 0, -10))

	first, err := e.Evaluate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, first.IsMember)
	assert.True(t, first.Changed)
	assert.EqualValues(t, 1, first.CompletedOrders)

	second, err := e.Evaluate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, second.IsMember)
	assert.False(t, second.Changed)
	assert.True(t, isMember(t, db, user.ID))
}

func TestEvaluateWindow(t *testing.T) {
	tests := []struct {
		name      string
		status    models.OrderStatus
		createdAt time.Time
		want      bool
	}{
		{name: "completed inside window", status: models.OrderStatusCompleted, createdAt: evalNow.AddDate(0, 0, -179), want: true},
		{name: "completed on window boundary", status: models.OrderStatusCompleted, createdAt: evalNow.Add(-180 * 24 * time.Hour), want: true},
		{name: "completed before window", status: models.OrderStatusCompleted, createdAt: evalNow.AddDate(0, 0, -181), want: false},
		{name: "shipped inside window", status: models.OrderStatusShipped, createdAt: evalNow.AddDate(0, 0, -1), want: false},
		{name: "cancelled inside window", status: models.OrderStatusCancelled, createdAt: evalNow.AddDate(0, 0, -1), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := storetest.OpenDB(t)
			user := storetest.CreateUser(t, db, "alice", false)
			insertOrder(t, db, user.ID, tc.status, tc.createdAt)

			result, err := newEvaluator(db).Evaluate(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.IsMember)
			assert.Equal(t, tc.want, result.Changed)
			assert.Equal(t, tc.want, isMember(t, db, user.ID))
		})
	}
}

func TestEvaluateRevokesExpiredMembership(t *testing.T) {
	db := storetest.OpenDB(t)
	user := storetest.CreateUser(t, db, "alice", false)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_member", true).Error)
	insertOrder(t, db, user.ID, models.OrderStatusCompleted, evalNow.AddDate(-1, 0, 0))

	result, err := newEvaluator(db).Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, result.IsMember)
	assert.True(t, result.Changed)
	assert.False(t, isMember(t, db, user.ID))
}

func TestEvaluateMissingUser(t *testing.T) {
	db := storetest.OpenDB(t)

	_, err := newEvaluator(db).Evaluate(context.Background(), 404)
	requireKind(t, err, apperr.KindNotFound)
}

func TestEvaluateForChecksOwnership(t *testing.T) {
	db := storetest.OpenDB(t)
	e := newEvaluator(db)
	alice := storetest.CreateUser(t, db, "alice", false)
	bob := storetest.CreateUser(t, db, "bob", false)

	_, err := e.EvaluateFor(context.Background(), alice.ID, callerOf(bob.ID))
	requireKind(t, err, apperr.KindForbidden)

	result, err := e.EvaluateFor(context.Background(), alice.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Username)
	assert.False(t, result.IsMember)
}

func TestDispatcherEvaluatesInBackground(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	db := storetest.OpenDB(t)
	user := storetest.CreateUser(t, db, "alice", false)
	insertOrder(t, db, user.ID, models.OrderStatusCompleted, time.Now().Add(-time.Hour))

	d := NewMembershipDispatcher(NewMembershipEvaluator(db, DefaultMembershipWindowDays), 2, nil)
	d.Notify(user.ID)
	d.Notify(404)
	d.Shutdown()
	d.Shutdown()

	assert.True(t, isMember(t, db, user.ID))

	// 關閉後的工作直接丟棄
	d.Notify(user.ID)
}

func TestOrderFlowGrantsMembership(t *testing.T) {
	db := storetest.OpenDB(t)
	ctx := context.Background()
	d := NewMembershipDispatcher(NewMembershipEvaluator(db, DefaultMembershipWindowDays), 1, nil)
	carts := NewCartService(db)
	orders := NewOrderService(db, nil, d, nil)

	user := storetest.CreateUser(t, db, "alice", false)
	p := storetest.CreateProduct(t, db, "P", "10.00", 5)

	_, err := carts.AddItem(ctx, user.ID, p.ID, 1, callerOf(user.ID))
	require.NoError(t, err)
	order, err := orders.CreateOrder(ctx, user.ID, CreateOrderInput{Recipient: "R", ShippingAddress: "A"}, callerOf(user.ID))
	require.NoError(t, err)
	_, err = orders.SetStatus(ctx, order.OrderID, models.OrderStatusShipped, admin)
	require.NoError(t, err)
	_, err = orders.CompleteOrder(ctx, order.OrderID, callerOf(user.ID))
	require.NoError(t, err)

	d.Shutdown()
	assert.True(t, isMember(t, db, user.ID))
}

// 受影響的使用者超過佇列容量時，每一位仍必須被重新評估
func TestAutoCompleteEvaluatesEveryUserBeyondQueueCapacity(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	db := storetest.OpenDB(t)
	old := time.Now().UTC().AddDate(0, 0, -20)

	const users = 30
	ids := make([]uint, 0, users)
	for i := 0; i < users; i++ {
		user := storetest.CreateUser(t, db, fmt.Sprintf("user%02d", i), false)
		insertOrder(t, db, user.ID, models.OrderStatusShipped, old)
		ids = append(ids, user.ID)
	}

	d := NewMembershipDispatcher(NewMembershipEvaluator(db, DefaultMembershipWindowDays), 2, nil)
	orders := NewOrderService(db, nil, d, nil)

	result, err := orders.AutoCompleteStaleOrders(context.Background(), DefaultAutoCompleteDays)
	require.NoError(t, err)
	d.Shutdown()

	assert.Len(t, result.OrderIDs, users)
	assert.ElementsMatch(t, ids, result.UserIDs)
	for _, id := range ids {
		assert.True(t, isMember(t, db, id), "userID %d", id)
	}
}

func TestDispatcherNotifyWaitAfterShutdown(t *testing.T) {
	d := NewMembershipDispatcher(NewMembershipEvaluator(storetest.OpenDB(t), DefaultMembershipWindowDays), 1, nil)
	d.Shutdown()
	assert.Error(t, d.NotifyWait(context.Background(), 1))
}
