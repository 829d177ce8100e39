package controllers

import (
	"context"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
)

// Reviews is the review side of the services layer
type Reviews interface {
	CreateReview(ctx context.Context, userID uint, in services.ReviewInput) (*models.Review, error)
	ListProductReviews(ctx context.Context, productID uint, p *utils.Pagination) ([]models.Review, error)
	DeleteReview(ctx context.Context, id uint) error
}

// ReviewRequest rates a product bought in an order
type ReviewRequest struct {
	ProductID uint   `json:"productId" binding:"required"`
	OrderID   uint   `json:"orderId" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"max=2000"`
}

// ReviewController serves the review endpoints
type ReviewController struct {
	Reviews Reviews
}

// NewReviewController creates a ReviewController
func NewReviewController(reviews Reviews) *ReviewController {
	return &ReviewController{Reviews: reviews}
}

// CreateReview handles POST /api/reviews
func (h *ReviewController) CreateReview(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return
	}
	if ok, msg := utils.CheckUnsafeInput(req.Comment); !ok {
		utils.BadRequest(c, msg, nil)
		return
	}

	review, err := h.Reviews.CreateReview(c.Request.Context(), identity.UserID, services.ReviewInput{
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Review submitted successfully", review)
}

// ListProductReviews handles GET /api/products/:id/reviews
func (h *ReviewController) ListProductReviews(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid product ID", nil)
		return
	}
	p := utils.NewPagination(c)
	reviews, err := h.Reviews.ListProductReviews(c.Request.Context(), productID, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Reviews retrieved successfully", reviews, p)
}

// DeleteReview handles DELETE /api/reviews/:id (admin)
func (h *ReviewController) DeleteReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid review ID", nil)
		return
	}
	if err := h.Reviews.DeleteReview(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Review deleted successfully", nil)
}
