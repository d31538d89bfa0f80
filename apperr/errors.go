// Package apperr 定義商城核心流程共用的錯誤分類。
//
// 每個錯誤都帶有可程式判斷的Kind與可閱讀的訊息，庫存不足時另外列出所有短缺商品。
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidArgument   Kind = "invalid_argument"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidState      Kind = "invalid_state"
	KindEmptyCart         Kind = "empty_cart"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Shortfall 描述單一商品的庫存缺口
type Shortfall struct {
	ProductID   uint   `json:"productID"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

type Error struct {
	Kind       Kind
	Message    string
	Shortfalls []Shortfall
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 保留原始錯誤，供日誌與errors.Is使用
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Internal(err error, message string) *Error {
	return Wrap(KindInternal, err, message)
}

func InsufficientStock(shortfalls []Shortfall) *Error {
	return &Error{
		Kind:       KindInsufficientStock,
		Message:    "部分商品庫存不足",
		Shortfalls: shortfalls,
	}
}

// KindOf 取得錯誤分類，非本套件的錯誤一律視為Internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ShortfallsOf 取出庫存不足錯誤中的短缺明細
func ShortfallsOf(err error) []Shortfall {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Shortfalls
	}
	return nil
}
