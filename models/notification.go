package models

import "time"

// Notification kinds
const (
	NotificationOrderConfirmation = "ORDER_CONFIRMATION"
	NotificationOrderStatusUpdate = "ORDER_STATUS_UPDATE"
	NotificationOrderShipped      = "ORDER_SHIPPED"
)

// Outbox status constants
const (
	OutboxStatusPending   = "PENDING"
	OutboxStatusPublished = "PUBLISHED"
	OutboxStatusSent      = "SENT"
	OutboxStatusFailed    = "FAILED"
)

// NotificationOutbox is a notification intent written in the same transaction
// as the change it announces, and dispatched after commit by the relay worker.
type NotificationOutbox struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Kind          string     `gorm:"type:varchar(32);not null" json:"kind"`
	OrderID       uint       `gorm:"index;not null" json:"orderId"`
	Recipient     string     `gorm:"not null" json:"recipient"`
	Status        string     `gorm:"type:varchar(10);not null;default:'PENDING';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `json:"lastError,omitempty"`
	NextAttemptAt time.Time  `gorm:"not null;index:idx_outbox_due,priority:2" json:"nextAttemptAt"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName overrides the pluralized default
func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}
