// Package access 負責資源擁有者與管理員權限檢查。
package access

import "OnlineStore/apperr"

// Caller 為已驗證身分的請求者
type Caller struct {
	ID      uint
	IsAdmin bool
}

// RequireOwnerOrAdmin 管理員可略過擁有者檢查
func RequireOwnerOrAdmin(targetUserID uint, caller Caller) error {
	if caller.IsAdmin {
		return nil
	}
	if caller.ID != targetUserID {
		return apperr.New(apperr.KindForbidden, "沒有權限存取此資源")
	}
	return nil
}

// RequireOwner 不允許管理員代為操作
func RequireOwner(targetUserID uint, caller Caller) error {
	if caller.ID != targetUserID {
		return apperr.New(apperr.KindForbidden, "沒有權限操作此資源")
	}
	return nil
}

func RequireAdmin(caller Caller) error {
	if !caller.IsAdmin {
		return apperr.New(apperr.KindForbidden, "需要管理員權限")
	}
	return nil
}

func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return apperr.New(apperr.KindInvalidArgument, "商品數量必須為正整數")
	}
	return nil
}
