package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods
const (
	PaymentMethodCreditCard = "CREDIT_CARD"
	PaymentMethodMBWay      = "MBWAY"
	PaymentMethodMultibanco = "MULTIBANCO"
	PaymentMethodPayPal     = "PAYPAL"
)

// PaymentMethods lists the accepted payment methods
var PaymentMethods = []string{
	PaymentMethodCreditCard,
	PaymentMethodMBWay,
	PaymentMethodMultibanco,
	PaymentMethodPayPal,
}

// Payment status constants
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// DefaultCurrency is used when the checkout does not send one
const DefaultCurrency = "EUR"

// Payment records how an order is paid (exactly one per order). Only the last
// four digits of a card are ever stored.
type Payment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"uniqueIndex;not null" json:"orderId"`
	Method     string          `gorm:"type:varchar(20);not null" json:"method"`
	Status     string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	LastDigits *string         `gorm:"type:varchar(4)" json:"lastDigits,omitempty"`
	MBWayPhone *string         `json:"mbwayPhone,omitempty"`
	Entity     *string         `gorm:"type:varchar(5)" json:"entity,omitempty"`
	Reference  *string         `gorm:"type:varchar(9)" json:"reference,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
