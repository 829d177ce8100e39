package services

import (
	"context"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"gorm.io/gorm"
)

// ReviewInput is a rating for a product bought in a specific order
type ReviewInput struct {
	ProductID uint
	OrderID   uint
	Rating    int
	Comment   string
}

// ReviewService manages product reviews
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService creates a ReviewService
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// CreateReview stores a review. The user must own a non-cancelled order that
// contains the product, and can review each order line once.
func (s *ReviewService) CreateReview(ctx context.Context, userID uint, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, utils.ValidationFailed("Rating must be between 1 and 5")
	}

	db := s.db.WithContext(ctx)

	var order models.Order
	if err := db.Select("id", "user_id", "status").First(&order, in.OrderID).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Order not found", err)
		}
		return nil, utils.InternalError("Failed to fetch order", err)
	}
	if order.UserID != userID {
		return nil, utils.ForbiddenError("You can only review your own orders")
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, utils.ValidationFailed("Cancelled orders cannot be reviewed")
	}

	var lines int64
	if err := db.Model(&models.OrderItem{}).
		Where("order_id = ? AND product_id = ?", in.OrderID, in.ProductID).
		Count(&lines).Error; err != nil {
		return nil, utils.InternalError("Failed to check order items", err)
	}
	if lines == 0 {
		return nil, utils.ValidationFailed("This product is not part of the order")
	}

	review := models.Review{
		UserID:    userID,
		OrderID:   in.OrderID,
		ProductID: in.ProductID,
		Rating:    in.Rating,
		Comment:   utils.SanitizeString(in.Comment),
	}
	if err := db.Create(&review).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("You already reviewed this product for this order", err)
		}
		return nil, utils.InternalError("Failed to create review", err)
	}

	utils.LogInfo("User %d reviewed product %d (order %d)", userID, in.ProductID, in.OrderID)
	return &review, nil
}

// ListProductReviews returns a page of reviews for a product, newest first
func (s *ReviewService) ListProductReviews(ctx context.Context, productID uint, p *utils.Pagination) ([]models.Review, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, utils.InternalError("Failed to count reviews", err)
	}
	p.SetTotal(total)

	var reviews []models.Review
	err := query.Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "username", "first_name", "last_name")
	}).Order("created_at DESC, id DESC").Scopes(p.Scope).Find(&reviews).Error
	if err != nil {
		return nil, utils.InternalError("Failed to fetch reviews", err)
	}
	return reviews, nil
}

// DeleteReview removes a review
func (s *ReviewService) DeleteReview(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Review{}, id)
	if res.Error != nil {
		return utils.InternalError("Failed to delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NotFoundError("Review not found", nil)
	}
	return nil
}
