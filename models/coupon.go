package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon discount types
const (
	CouponTypePercentage = "PERCENTAGE"
	CouponTypeFixed      = "FIXED"
)

// Coupon is a discount definition. Coupons are never hard-deleted, only
// deactivated; UsedCount is only mutated by redemptions.
type Coupon struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	Code      string              `gorm:"uniqueIndex;not null" json:"code"`
	Type      string              `gorm:"type:varchar(12);not null" json:"type"`
	Value     decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"value"`
	MinValue  decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"minValue"`
	MaxUses   *int                `json:"maxUses"`
	UsedCount int                 `gorm:"not null;default:0" json:"usedCount"`
	StartDate time.Time           `gorm:"not null" json:"startDate"`
	EndDate   time.Time           `gorm:"not null" json:"endDate"`
	IsActive  bool                `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// CouponRedemption records a counted redemption of a coupon against an order
type CouponRedemption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CouponID   uint      `gorm:"uniqueIndex:idx_coupon_redemptions_coupon_order;not null" json:"couponId"`
	OrderID    uint      `gorm:"uniqueIndex:idx_coupon_redemptions_coupon_order;not null" json:"orderId"`
	UserID     uint      `gorm:"index;not null" json:"userId"`
	RedeemedAt time.Time `gorm:"not null" json:"redeemedAt"`
}
