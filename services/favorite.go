package services

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/models"
	"context"
	"errors"

	"gorm.io/gorm"
)

type FavoriteService struct {
	db *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

func (s *FavoriteService) Check(ctx context.Context, userID, productID uint, caller access.Caller) (bool, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)
	if err := requireUser(db, userID); err != nil {
		return false, err
	}
	if _, err := findProduct(db, productID); err != nil {
		return false, err
	}

	var count int64
	err := db.Model(&models.Favorite{}).Where("user_id = ? AND product_id = ?", userID, productID).Count(&count).Error
	if err != nil {
		return false, apperr.Internal(err, "查詢收藏失敗")
	}
	return count > 0, nil
}

func (s *FavoriteService) Add(ctx context.Context, userID, productID uint, caller access.Caller) error {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if _, err := findProduct(tx, productID); err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.Favorite{}).Where("user_id = ? AND product_id = ?", userID, productID).Count(&count).Error
		if err != nil {
			return apperr.Internal(err, "查詢收藏失敗")
		}
		if count > 0 {
			return apperr.New(apperr.KindConflict, "商品已在收藏清單中")
		}

		if err := tx.Create(&models.Favorite{UserID: userID, ProductID: productID}).Error; err != nil {
			return apperr.Wrap(apperr.KindConflict, err, "商品已在收藏清單中")
		}
		return nil
	})
}

func (s *FavoriteService) Remove(ctx context.Context, userID, productID uint, caller access.Caller) error {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return apperr.Internal(result.Error, "移除收藏失敗")
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "收藏紀錄不存在")
	}
	return nil
}

// List 回傳收藏的商品資料，已下架的商品不列出
func (s *FavoriteService) List(ctx context.Context, userID uint, caller access.Caller) ([]models.Product, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := requireUser(db, userID); err != nil {
		return nil, err
	}

	var products []models.Product
	err := db.
		Joins("JOIN favorites ON favorites.product_id = products.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC, products.id").
		Find(&products).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢收藏清單失敗")
	}
	return products, nil
}

func (s *FavoriteService) Count(ctx context.Context, userID uint, caller access.Caller) (int64, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, apperr.Internal(err, "統計收藏數量失敗")
	}
	return count, nil
}

func (s *FavoriteService) ListAll(ctx context.Context, page Page, caller access.Caller) ([]models.Favorite, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var favorites []models.Favorite
	err := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("user_id, product_id").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&favorites).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢收藏列表失敗")
	}
	return favorites, nil
}

func (s *FavoriteService) ListForUser(ctx context.Context, userID uint, caller access.Caller) ([]models.Favorite, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var favorites []models.Favorite
	err := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ?", userID).
		Order("product_id").
		Find(&favorites).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢收藏列表失敗")
	}
	return favorites, nil
}

func requireUser(db *gorm.DB, userID uint) error {
	var user models.User
	err := db.Select("id").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, "使用者不存在")
	}
	if err != nil {
		return apperr.Internal(err, "查詢使用者失敗")
	}
	return nil
}
