// Package services 實作商城的購物車、訂單、會員、商品、收藏與評論流程。
//
// 每個會異動多筆資料的操作都在單一gorm交易中完成，交易內只使用tx。
// 權限檢查以access.Caller表示呼叫者，HTTP層只負責解析參數與轉換錯誤。
package services

import (
	"OnlineStore/apperr"
	"OnlineStore/logger"
	"context"
	"log/slog"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

// Page 為skip/limit分頁參數
type Page struct {
	Skip  int
	Limit int
}

// NewPage limit未填時使用預設值，超過上限時截斷
func NewPage(skip, limit int) (Page, error) {
	if skip < 0 {
		return Page{}, apperr.New(apperr.KindInvalidArgument, "skip不可為負數")
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Skip: skip, Limit: limit}, nil
}

func logFromCtx(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := logger.FromCtx(ctx); ok {
		return log
	}
	return fallback
}
