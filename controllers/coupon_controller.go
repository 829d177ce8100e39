package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponLedger is the coupon side of the services layer
type CouponLedger interface {
	CreateCoupon(ctx context.Context, in services.CouponInput) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, id uint, in services.CouponUpdate) (*models.Coupon, error)
	GetCoupon(ctx context.Context, id uint) (*models.Coupon, error)
	ListCoupons(ctx context.Context, activeOnly bool, p *utils.Pagination) ([]models.Coupon, error)
	ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*services.CouponValidation, error)
	ApplyCoupon(ctx context.Context, code string, orderID uint, requester utils.Identity) (*services.CouponRedemptionResult, error)
}

// CreateCouponRequest is the admin coupon definition
type CreateCouponRequest struct {
	Code      string           `json:"code" binding:"required,max=50"`
	Type      string           `json:"type" binding:"required,coupontype"`
	Value     decimal.Decimal  `json:"value"`
	MinValue  *decimal.Decimal `json:"minValue"`
	MaxUses   *int             `json:"maxUses" binding:"omitempty,min=1"`
	StartDate time.Time        `json:"startDate" binding:"required"`
	EndDate   time.Time        `json:"endDate" binding:"required"`
}

// UpdateCouponRequest changes only the fields that are present. minValue and
// maxUses accept null to remove the limit.
type UpdateCouponRequest struct {
	Code      *string                   `json:"code" binding:"omitempty,max=50"`
	Type      *string                   `json:"type" binding:"omitempty,coupontype"`
	Value     *decimal.Decimal          `json:"value"`
	MinValue  nullable[decimal.Decimal] `json:"minValue"`
	MaxUses   nullable[int]             `json:"maxUses"`
	StartDate *time.Time                `json:"startDate"`
	EndDate   *time.Time                `json:"endDate"`
	IsActive  *bool                     `json:"isActive"`
}

// ValidateCouponRequest checks a code against the current cart
type ValidateCouponRequest struct {
	Code      string          `json:"code" binding:"required"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

// ApplyCouponRequest redeems a code against an existing order
type ApplyCouponRequest struct {
	Code    string `json:"code" binding:"required"`
	OrderID uint   `json:"orderId" binding:"required"`
}

// CouponWithDiscount is a coupon plus what it is worth for the given total
type CouponWithDiscount struct {
	models.Coupon
	Discount      decimal.Decimal `json:"discount"`
	RemainingUses *int            `json:"remainingUses"`
}

// CouponController serves the coupon endpoints. Errors are answered as {message}.
type CouponController struct {
	Coupons CouponLedger
}

// NewCouponController creates a CouponController
func NewCouponController(coupons CouponLedger) *CouponController {
	return &CouponController{Coupons: coupons}
}

// CreateCoupon handles POST /api/coupons (admin)
func (h *CouponController) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}

	in := services.CouponInput{
		Code:      req.Code,
		Type:      req.Type,
		Value:     req.Value,
		MaxUses:   req.MaxUses,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if req.MinValue != nil {
		in.MinValue = decimal.NewNullDecimal(*req.MinValue)
	}

	coupon, err := h.Coupons.CreateCoupon(c.Request.Context(), in)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

// ListCoupons handles GET /api/coupons (admin)
func (h *CouponController) ListCoupons(c *gin.Context) {
	p := utils.NewPagination(c)
	coupons, err := h.Coupons.ListCoupons(c.Request.Context(), c.Query("active") == "true", p)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"pagination": gin.H{
			"total":      p.Total,
			"page":       p.Page,
			"perPage":    p.Limit,
			"totalPages": p.LastPage,
		},
	})
}

// GetCoupon handles GET /api/coupons/:id (admin)
func (h *CouponController) GetCoupon(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.Message(c, http.StatusBadRequest, "Invalid coupon ID")
		return
	}
	coupon, err := h.Coupons.GetCoupon(c.Request.Context(), id)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// UpdateCoupon handles PUT /api/coupons/:id (admin)
func (h *CouponController) UpdateCoupon(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.Message(c, http.StatusBadRequest, "Invalid coupon ID")
		return
	}
	var req UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}

	coupon, err := h.Coupons.UpdateCoupon(c.Request.Context(), id, services.CouponUpdate{
		Code:          req.Code,
		Type:          req.Type,
		Value:         req.Value,
		MinValue:      req.MinValue.Value,
		ClearMinValue: req.MinValue.clear(),
		MaxUses:       req.MaxUses.Value,
		ClearMaxUses:  req.MaxUses.clear(),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsActive:      req.IsActive,
	})
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// ValidateCoupon handles POST /api/coupons/validate
func (h *CouponController) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}
	if req.CartTotal.IsNegative() {
		utils.Message(c, http.StatusBadRequest, "Cart total cannot be negative")
		return
	}

	result, err := h.Coupons.ValidateCoupon(c.Request.Context(), req.Code, req.CartTotal)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": result.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"coupon": CouponWithDiscount{
			Coupon:        *result.Coupon,
			Discount:      result.Discount,
			RemainingUses: result.RemainingUses,
		},
	})
}

// ApplyCoupon handles POST /api/coupons/apply
func (h *CouponController) ApplyCoupon(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}

	result, err := h.Coupons.ApplyCoupon(c.Request.Context(), req.Code, req.OrderID, identity)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Coupon applied successfully",
		"orderId":  result.OrderID,
		"discount": result.Discount,
		"coupon":   result.Coupon,
	})
}
