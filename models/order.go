package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status constants
const (
	OrderStatusPending         = "PENDING"
	OrderStatusProcessing      = "PROCESSING"
	OrderStatusAwaitingPayment = "AWAITING_PAYMENT"
	OrderStatusPaid            = "PAID"
	OrderStatusShipped         = "SHIPPED"
	OrderStatusDelivered       = "DELIVERED"
	OrderStatusCancelled       = "CANCELLED"
)

// OrderStatuses lists every status an order may hold
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusAwaitingPayment,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValidOrderStatus reports whether s is one of OrderStatuses
func IsValidOrderStatus(s string) bool {
	for _, status := range OrderStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Shipping methods
const (
	ShippingMethodStandard = "STANDARD"
	ShippingMethodExpress  = "EXPRESS"
	ShippingMethodPickup   = "PICKUP"
)

// ShippingMethods lists the supported delivery options
var ShippingMethods = []string{ShippingMethodStandard, ShippingMethodExpress, ShippingMethodPickup}

// ShippingStatusFor returns the shipping status mirroring an order status.
// The second result is false for order statuses outside the shipping subset.
func ShippingStatusFor(orderStatus string) (string, bool) {
	switch orderStatus {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return orderStatus, true
	}
	return "", false
}

type Order struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	UserID         uint                `gorm:"index;not null" json:"userId"`
	User           *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status         string              `gorm:"type:varchar(20);not null;index;default:'PENDING'" json:"status"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"totalAmount"`
	CouponID       *uint               `gorm:"index" json:"couponId"`
	Coupon         *Coupon             `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	DiscountAmount decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"discountAmount"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Shipping       *Shipping           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"shipping,omitempty"`
	Payment        *Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// OrderItem is one cart line frozen at purchase time. Price is the unit price
// captured at checkout and does not follow later product price changes.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"orderId"`
	ProductID uint            `gorm:"index;not null" json:"productId"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// Shipping holds the delivery details of an order (exactly one per order)
type Shipping struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"uniqueIndex;not null" json:"orderId"`
	Method       string          `gorm:"type:varchar(20);not null" json:"method"`
	Status       string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	FullName     string          `json:"fullName"`
	Address      string          `gorm:"not null" json:"address"`
	City         string          `gorm:"not null" json:"city"`
	PostalCode   string          `gorm:"not null" json:"postalCode"`
	Country      string          `gorm:"not null" json:"country"`
	Phone        string          `json:"phone"`
	Cost         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"cost"`
	TrackingCode *string         `json:"trackingCode"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
