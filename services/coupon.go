package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// CouponInput carries the fields of a new coupon
type CouponInput struct {
	Code      string
	Type      string
	Value     decimal.Decimal
	MinValue  decimal.NullDecimal
	MaxUses   *int
	StartDate time.Time
	EndDate   time.Time
}

// CouponUpdate carries the fields to change; nil means unchanged. The Clear
// flags remove the minimum value or the usage limit.
type CouponUpdate struct {
	Code          *string
	Type          *string
	Value         *decimal.Decimal
	MinValue      *decimal.Decimal
	ClearMinValue bool
	MaxUses       *int
	ClearMaxUses  bool
	StartDate     *time.Time
	EndDate       *time.Time
	IsActive      *bool
}

// CouponValidation is the outcome of checking a code against a cart total
type CouponValidation struct {
	Valid         bool
	Message       string
	Coupon        *models.Coupon
	Discount      decimal.Decimal
	RemainingUses *int
}

// CouponRedemptionResult is returned by a successful ApplyCoupon
type CouponRedemptionResult struct {
	OrderID  uint
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// couponCheck is the first failing rule of a coupon, if any
type couponCheck int

const (
	couponOK couponCheck = iota
	couponNotStarted
	couponExpired
	couponExhausted
	couponBelowMinimum
)

// CouponService is the coupon ledger: definitions and redemption accounting
type CouponService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCouponService creates a CouponService. A nil clock means time.Now.
func NewCouponService(db *gorm.DB, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{db: db, now: now}
}

func validateCouponFields(code, couponType string, value decimal.Decimal, minValue decimal.NullDecimal, maxUses *int, start, end time.Time) error {
	if code == "" {
		return utils.ValidationFailed("Coupon code is required")
	}
	if couponType != models.CouponTypePercentage && couponType != models.CouponTypeFixed {
		return utils.ValidationFailed("Coupon type must be PERCENTAGE or FIXED")
	}
	if !value.IsPositive() {
		return utils.ValidationFailed("Coupon value must be greater than 0")
	}
	if couponType == models.CouponTypePercentage && value.GreaterThan(hundred) {
		return utils.ValidationFailed("Percentage coupon value cannot exceed 100")
	}
	if minValue.Valid && minValue.Decimal.IsNegative() {
		return utils.ValidationFailed("Minimum value cannot be negative")
	}
	if maxUses != nil && *maxUses < 1 {
		return utils.ValidationFailed("Max uses must be at least 1")
	}
	if !end.After(start) {
		return utils.ValidationFailed("End date must be after start date")
	}
	return nil
}

// CreateCoupon stores a new active coupon under its uppercased code
func (s *CouponService) CreateCoupon(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	code := utils.NormalizeCode(in.Code)
	if err := validateCouponFields(code, in.Type, in.Value, in.MinValue, in.MaxUses, in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	coupon := models.Coupon{
		Code:      code,
		Type:      in.Type,
		Value:     in.Value.Round(2),
		MinValue:  in.MinValue,
		MaxUses:   in.MaxUses,
		UsedCount: 0,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(&coupon).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.DuplicateCodeError("Coupon code already exists", err)
		}
		return nil, utils.InternalError("Failed to create coupon", err)
	}

	utils.LogInfo("Coupon %s created (ID %d)", coupon.Code, coupon.ID)
	return &coupon, nil
}

// UpdateCoupon applies a partial update under the same rules as creation
func (s *CouponService) UpdateCoupon(ctx context.Context, id uint, in CouponUpdate) (*models.Coupon, error) {
	coupon, err := s.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if in.Code != nil {
		coupon.Code = utils.NormalizeCode(*in.Code)
		changes["code"] = coupon.Code
	}
	if in.Type != nil {
		coupon.Type = *in.Type
		changes["type"] = coupon.Type
	}
	if in.Value != nil {
		coupon.Value = in.Value.Round(2)
		changes["value"] = coupon.Value
	}
	switch {
	case in.ClearMinValue:
		coupon.MinValue = decimal.NullDecimal{}
		changes["min_value"] = nil
	case in.MinValue != nil:
		coupon.MinValue = decimal.NewNullDecimal(*in.MinValue)
		changes["min_value"] = coupon.MinValue
	}
	switch {
	case in.ClearMaxUses:
		coupon.MaxUses = nil
		changes["max_uses"] = nil
	case in.MaxUses != nil:
		coupon.MaxUses = in.MaxUses
		changes["max_uses"] = *in.MaxUses
	}
	if in.StartDate != nil {
		coupon.StartDate = *in.StartDate
		changes["start_date"] = coupon.StartDate
	}
	if in.EndDate != nil {
		coupon.EndDate = *in.EndDate
		changes["end_date"] = coupon.EndDate
	}
	if in.IsActive != nil {
		coupon.IsActive = *in.IsActive
		changes["is_active"] = coupon.IsActive
	}

	if err := validateCouponFields(coupon.Code, coupon.Type, coupon.Value, coupon.MinValue, coupon.MaxUses, coupon.StartDate, coupon.EndDate); err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return coupon, nil
	}
	// a limit at or below the current usage leaves the coupon exhausted
	if coupon.MaxUses != nil && (in.MaxUses != nil || in.IsActive != nil) {
		changes["is_active"] = gorm.Expr("? AND used_count < ?", coupon.IsActive, *coupon.MaxUses)
	}

	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.DuplicateCodeError("Coupon code already exists", err)
		}
		return nil, utils.InternalError("Failed to update coupon", err)
	}

	utils.LogInfo("Coupon %d updated", id)
	return s.GetCoupon(ctx, id)
}

// GetCoupon returns a coupon by ID
func (s *CouponService) GetCoupon(ctx context.Context, id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := s.db.WithContext(ctx).First(&coupon, id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Coupon not found", err)
		}
		return nil, utils.InternalError("Failed to fetch coupon", err)
	}
	return &coupon, nil
}

// ListCoupons returns coupons newest first
func (s *CouponService) ListCoupons(ctx context.Context, activeOnly bool, p *utils.Pagination) ([]models.Coupon, error) {
	query := s.db.WithContext(ctx).Model(&models.Coupon{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, utils.InternalError("Failed to count coupons", err)
	}
	p.SetTotal(total)

	var coupons []models.Coupon
	if err := query.Order("created_at DESC, id DESC").Scopes(p.Scope).Find(&coupons).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch coupons", err)
	}
	return coupons, nil
}

// ValidateCoupon checks an active coupon against a cart total. Checks run in a
// fixed order and only the first failure is reported. An expired or exhausted
// coupon is deactivated on the way.
func (s *CouponService) ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*CouponValidation, error) {
	var coupon models.Coupon
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", utils.NormalizeCode(code), true).
		First(&coupon).Error
	if err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Coupon not found", err)
		}
		return nil, utils.InternalError("Failed to fetch coupon", err)
	}

	check := checkCoupon(&coupon, cartTotal, s.now())
	if check != couponOK {
		if check == couponExpired || check == couponExhausted {
			s.deactivate(ctx, &coupon)
		}
		return &CouponValidation{Valid: false, Message: checkMessage(check, &coupon)}, nil
	}

	return &CouponValidation{
		Valid:         true,
		Coupon:        &coupon,
		Discount:      computeDiscount(&coupon, cartTotal),
		RemainingUses: remainingUses(&coupon),
	}, nil
}

// ApplyCoupon redeems a coupon against one of the requester's orders. The
// order link, the redemption record and the guarded usage increment commit
// together or not at all.
func (s *CouponService) ApplyCoupon(ctx context.Context, code string, orderID uint, requester utils.Identity) (*CouponRedemptionResult, error) {
	db := s.db.WithContext(ctx)

	var coupon models.Coupon
	if err := db.Where("code = ?", utils.NormalizeCode(code)).First(&coupon).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Coupon not found", err)
		}
		return nil, utils.InternalError("Failed to fetch coupon", err)
	}

	var order models.Order
	if err := db.Select("id", "user_id", "total_amount", "coupon_id").First(&order, orderID).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Order not found", err)
		}
		return nil, utils.InternalError("Failed to fetch order", err)
	}
	if order.UserID != requester.UserID && !requester.IsAdmin() {
		return nil, utils.ForbiddenError("You are not allowed to modify this order")
	}
	if order.CouponID != nil && *order.CouponID != coupon.ID {
		return nil, utils.ConflictError("Order already has a different coupon applied", nil)
	}

	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return nil, utils.ValidationFailed(checkMessage(couponExhausted, &coupon))
	}
	if !coupon.IsActive {
		return nil, utils.ValidationFailed("Coupon is not active")
	}
	if check := checkCoupon(&coupon, order.TotalAmount, s.now()); check != couponOK {
		if check == couponExpired {
			s.deactivate(ctx, &coupon)
		}
		return nil, utils.ValidationFailed(checkMessage(check, &coupon))
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND (coupon_id IS NULL OR coupon_id = ?)", order.ID, coupon.ID).
			Update("coupon_id", coupon.ID)
		if res.Error != nil {
			return fmt.Errorf("link coupon to order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError("Order already has a different coupon applied", nil)
		}

		redemption := models.CouponRedemption{
			CouponID:   coupon.ID,
			OrderID:    order.ID,
			UserID:     order.UserID,
			RedeemedAt: s.now(),
		}
		if err := tx.Create(&redemption).Error; err != nil {
			if isUniqueViolation(err) {
				return utils.ConflictError("Coupon already applied to this order", err)
			}
			return fmt.Errorf("record redemption: %w", err)
		}

		res = tx.Model(&models.Coupon{}).
			Where("id = ? AND is_active = ? AND (max_uses IS NULL OR used_count < max_uses)", coupon.ID, true).
			Updates(map[string]interface{}{
				"used_count": gorm.Expr("used_count + 1"),
				"is_active":  gorm.Expr("CASE WHEN max_uses IS NULL THEN TRUE ELSE used_count + 1 < max_uses END"),
			})
		if res.Error != nil {
			return fmt.Errorf("increment coupon usage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.ValidationFailed(checkMessage(couponExhausted, &coupon))
		}

		return tx.First(&coupon, coupon.ID).Error
	})
	if err != nil {
		return nil, wrapInternal("Failed to apply coupon", err)
	}

	utils.LogInfo("Coupon %s applied to order %d (%d/%s uses)", coupon.Code, order.ID, coupon.UsedCount, maxUsesLabel(&coupon))
	return &CouponRedemptionResult{
		OrderID:  order.ID,
		Coupon:   &coupon,
		Discount: computeDiscount(&coupon, order.TotalAmount),
	}, nil
}

func (s *CouponService) deactivate(ctx context.Context, coupon *models.Coupon) {
	coupon.IsActive = false
	err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", coupon.ID).
		Update("is_active", false).Error
	if err != nil {
		utils.LogError("Failed to deactivate coupon %s: %v", coupon.Code, err)
		return
	}
	utils.LogInfo("Coupon %s deactivated", coupon.Code)
}

// checkCoupon evaluates the window, usage and minimum rules in order
func checkCoupon(c *models.Coupon, total decimal.Decimal, now time.Time) couponCheck {
	switch {
	case now.Before(c.StartDate):
		return couponNotStarted
	case now.After(c.EndDate):
		return couponExpired
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return couponExhausted
	case c.MinValue.Valid && total.LessThan(c.MinValue.Decimal):
		return couponBelowMinimum
	}
	return couponOK
}

func checkMessage(check couponCheck, c *models.Coupon) string {
	switch check {
	case couponNotStarted:
		return fmt.Sprintf("Coupon will be active from %s", c.StartDate.Format("2006-01-02 15:04"))
	case couponExpired:
		return "Coupon has expired"
	case couponExhausted:
		return "Coupon usage limit reached"
	case couponBelowMinimum:
		return fmt.Sprintf("Minimum order value for this coupon is %s", c.MinValue.Decimal.StringFixed(2))
	}
	return ""
}

// computeDiscount returns the discount for a cart total. Percentage discounts
// are not capped; fixed discounts never exceed the total.
func computeDiscount(c *models.Coupon, total decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case models.CouponTypePercentage:
		return total.Mul(c.Value).Div(hundred).Round(2)
	case models.CouponTypeFixed:
		return decimal.Min(c.Value, total).Round(2)
	}
	return decimal.Zero
}

func remainingUses(c *models.Coupon) *int {
	if c.MaxUses == nil {
		return nil
	}
	remaining := *c.MaxUses - c.UsedCount
	return &remaining
}

func maxUsesLabel(c *models.Coupon) string {
	if c.MaxUses == nil {
		return "unlimited"
	}
	return fmt.Sprint(*c.MaxUses)
}
