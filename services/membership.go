package services

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/metrics"
	"OnlineStore/models"
	"OnlineStore/worker"
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

const DefaultMembershipWindowDays = 180

// MembershipNotifier 接收需要重新評估會員資格的使用者。
// Notify不得阻塞呼叫端；NotifyWait用於批次流程，必須排入或回傳錯誤
type MembershipNotifier interface {
	Notify(userID uint)
	NotifyWait(ctx context.Context, userID uint) error
}

type MembershipResult struct {
	UserID          uint   `json:"userID"`
	Username        string `json:"username"`
	IsMember        bool   `json:"isMember"`
	Changed         bool   `json:"changed"`
	CompletedOrders int64  `json:"completedOrders"`
}

// MembershipEvaluator 依近期已完成訂單重新計算會員資格
type MembershipEvaluator struct {
	db     *gorm.DB
	window time.Duration
	now    func() time.Time
}

func NewMembershipEvaluator(db *gorm.DB, windowDays int) *MembershipEvaluator {
	if windowDays <= 0 {
		windowDays = DefaultMembershipWindowDays
	}
	return &MembershipEvaluator{
		db:     db,
		window: time.Duration(windowDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Evaluate 只在資格改變時寫回資料庫，重複呼叫結果相同
func (e *MembershipEvaluator) Evaluate(ctx context.Context, userID uint) (MembershipResult, error) {
	result := MembershipResult{UserID: userID}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id", "username", "is_member").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "使用者不存在")
			}
			return apperr.Internal(err, "查詢使用者失敗")
		}
		result.Username = user.Username

		since := e.now().Add(-e.window)
		err := tx.Model(&models.Order{}).
			Where("user_id = ? AND status = ? AND created_at >= ?", userID, models.OrderStatusCompleted, since).
			Count(&result.CompletedOrders).
			Error
		if err != nil {
			return apperr.Internal(err, "統計已完成訂單失敗")
		}

		result.IsMember = result.CompletedOrders > 0
		if user.IsMember == result.IsMember {
			return nil
		}

		err = tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("is_member", result.IsMember).
			Error
		if err != nil {
			return apperr.Internal(err, "更新會員資格失敗")
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		metrics.MembershipEvaluations.WithLabelValues("error").Inc()
		return MembershipResult{}, err
	}

	if result.Changed {
		metrics.MembershipEvaluations.WithLabelValues("changed").Inc()
	} else {
		metrics.MembershipEvaluations.WithLabelValues("unchanged").Inc()
	}
	return result, nil
}

// EvaluateFor 供會員狀態查詢與手動重算使用，僅限本人或管理員
func (e *MembershipEvaluator) EvaluateFor(ctx context.Context, userID uint, caller access.Caller) (MembershipResult, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return MembershipResult{}, err
	}
	return e.Evaluate(ctx, userID)
}

// MembershipDispatcher 將會員評估排入背景工作池，失敗只記錄不回傳
type MembershipDispatcher struct {
	pool      *worker.Pool
	evaluator *MembershipEvaluator
	timeout   time.Duration
	log       *slog.Logger
}

func NewMembershipDispatcher(evaluator *MembershipEvaluator, workers int, log *slog.Logger) *MembershipDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &MembershipDispatcher{
		pool:      worker.NewPool(workers, log),
		evaluator: evaluator,
		timeout:   10 * time.Second,
		log:       log,
	}
}

func (d *MembershipDispatcher) Notify(userID uint) {
	if err := d.pool.Submit(d.task(userID)); err != nil {
		metrics.MembershipDropped.Inc()
		d.log.Warn("會員評估工作未排入", "userID", userID, "error", err)
	}
}

// NotifyWait 佇列已滿時等待空位，只有ctx結束或工作池關閉才會失敗
func (d *MembershipDispatcher) NotifyWait(ctx context.Context, userID uint) error {
	return d.pool.SubmitWait(ctx, d.task(userID))
}

func (d *MembershipDispatcher) task(userID uint) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		result, err := d.evaluator.Evaluate(ctx, userID)
		if err != nil {
			d.log.Error("更新會員資格失敗", "userID", userID, "error", err)
			return
		}
		if result.Changed {
			d.log.Info("會員資格已更新", "userID", userID, "isMember", result.IsMember)
		}
	}
}

// Shutdown 等待已排入的評估完成
func (d *MembershipDispatcher) Shutdown() {
	d.pool.Shutdown()
}
