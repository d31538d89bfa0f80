package services

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/models"
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	minRating = decimal.NewFromInt(1)
	maxRating = decimal.NewFromInt(5)
)

type ReviewInput struct {
	ProductID uint
	Content   string
	Rating    decimal.Decimal
}

type ReviewView struct {
	UserID      uint            `json:"userID"`
	Username    string          `json:"username"`
	ProductID   uint            `json:"productID"`
	ProductName string          `json:"productName"`
	Content     string          `json:"content"`
	Rating      decimal.Decimal `json:"rating"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Add 只有已完成訂單中買過此商品的使用者可以評論，每人每商品一則
func (s *ReviewService) Add(ctx context.Context, userID uint, input ReviewInput, caller access.Caller) (ReviewView, error) {
	if err := access.RequireOwner(userID, caller); err != nil {
		return ReviewView{}, err
	}
	if input.Rating.LessThan(minRating) || input.Rating.GreaterThan(maxRating) {
		return ReviewView{}, apperr.New(apperr.KindInvalidArgument, "評分必須介於1.0到5.0")
	}

	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProduct(tx, input.ProductID); err != nil {
			return err
		}

		var purchased int64
		err := tx.Model(&models.Order{}).
			Joins("JOIN order_items ON order_items.order_id = orders.id").
			Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?",
				userID, models.OrderStatusCompleted, input.ProductID).
			Count(&purchased).
			Error
		if err != nil {
			return apperr.Internal(err, "查詢購買紀錄失敗")
		}
		if purchased == 0 {
			return apperr.New(apperr.KindInvalidState, "只有購買並完成訂單的使用者可以評論此商品")
		}

		var existing int64
		err = tx.Model(&models.Review{}).
			Where("user_id = ? AND product_id = ?", userID, input.ProductID).
			Count(&existing).
			Error
		if err != nil {
			return apperr.Internal(err, "查詢評論失敗")
		}
		if existing > 0 {
			return apperr.New(apperr.KindConflict, "已經評論過此商品")
		}

		review = models.Review{
			UserID:    userID,
			ProductID: input.ProductID,
			Content:   input.Content,
			Rating:    input.Rating.Round(1),
		}
		if err := tx.Create(&review).Error; err != nil {
			return apperr.Wrap(apperr.KindConflict, err, "已經評論過此商品")
		}
		return nil
	})
	if err != nil {
		return ReviewView{}, err
	}

	views, err := s.load(s.db.WithContext(ctx).Where("reviews.user_id = ? AND reviews.product_id = ?", userID, input.ProductID))
	if err != nil {
		return ReviewView{}, err
	}
	if len(views) == 0 {
		return ReviewView{}, apperr.Internal(errors.New("review not found after insert"), "查詢評論失敗")
	}
	return views[0], nil
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uint) ([]ReviewView, error) {
	db := s.db.WithContext(ctx)
	if _, err := findProduct(db, productID); err != nil {
		return nil, err
	}
	return s.load(db.Where("reviews.product_id = ?", productID))
}

func (s *ReviewService) ListForUser(ctx context.Context, userID uint, caller access.Caller) ([]ReviewView, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx).Where("reviews.user_id = ?", userID))
}

func (s *ReviewService) ListAll(ctx context.Context, page Page, caller access.Caller) ([]ReviewView, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx).Offset(page.Skip).Limit(page.Limit))
}

func (s *ReviewService) Delete(ctx context.Context, userID, productID uint, caller access.Caller) error {
	if err := access.RequireAdmin(caller); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Review{})
	if result.Error != nil {
		return apperr.Internal(result.Error, "刪除評論失敗")
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "評論不存在")
	}
	return nil
}

func (s *ReviewService) load(query *gorm.DB) ([]ReviewView, error) {
	var reviews []models.Review
	err := query.
		Preload("User").
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("reviews.created_at DESC, reviews.user_id").
		Find(&reviews).
		Error
	if err != nil {
		return nil, apperr.Internal(err, "查詢評論失敗")
	}

	views := make([]ReviewView, 0, len(reviews))
	for _, review := range reviews {
		views = append(views, ReviewView{
			UserID:      review.UserID,
			Username:    review.User.Username,
			ProductID:   review.ProductID,
			ProductName: review.Product.Name,
			Content:     review.Content,
			Rating:      review.Rating,
			CreatedAt:   review.CreatedAt,
		})
	}
	return views, nil
}
