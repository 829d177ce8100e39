package services

import (
	"context"
	"time"

	"github.com/gamershop/gamershop/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimLease keeps a claimed row away from other relays while it is being sent
const claimLease = time.Minute

// OutboxStore persists notification intents next to the business data
type OutboxStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOutboxStore creates an OutboxStore
func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db, now: time.Now}
}

// Enqueue writes a pending notification using the caller's transaction
func (s *OutboxStore) Enqueue(tx *gorm.DB, kind string, orderID uint, recipient string) error {
	return tx.Create(&models.NotificationOutbox{
		Kind:          kind,
		OrderID:       orderID,
		Recipient:     recipient,
		Status:        models.OutboxStatusPending,
		NextAttemptAt: s.now(),
	}).Error
}

// ClaimDue returns up to limit pending rows whose next attempt is due and
// pushes their next attempt past the lease so concurrent relays skip them.
func (s *OutboxStore) ClaimDue(ctx context.Context, limit int) ([]models.NotificationOutbox, error) {
	var rows []models.NotificationOutbox
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", models.OutboxStatusPending, now).
			Order("next_attempt_at, id").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uint, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		return tx.Model(&models.NotificationOutbox{}).
			Where("id IN ?", ids).
			Update("next_attempt_at", now.Add(claimLease)).Error
	})
	return rows, err
}

// MarkSent records a successful delivery
func (s *OutboxStore) MarkSent(ctx context.Context, id uint) error {
	now := s.now()
	return s.db.WithContext(ctx).Model(&models.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusSent,
			"sent_at":    now,
			"last_error": "",
		}).Error
}

// MarkPublished records that the notification was handed to the broker. The
// row leaves the relay's queue until the consumer reports the outcome.
func (s *OutboxStore) MarkPublished(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.NotificationOutbox{}).
		Where("id = ? AND status = ?", id, models.OutboxStatusPending).
		Update("status", models.OutboxStatusPublished).Error
}

// MarkRetry schedules another attempt
func (s *OutboxStore) MarkRetry(ctx context.Context, id uint, attempts int, next time.Time, lastErr string) error {
	return s.db.WithContext(ctx).Model(&models.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.OutboxStatusPending,
			"attempts":        attempts,
			"next_attempt_at": next,
			"last_error":      lastErr,
		}).Error
}

// MarkFailed gives up on a notification
func (s *OutboxStore) MarkFailed(ctx context.Context, id uint, attempts int, lastErr string) error {
	return s.db.WithContext(ctx).Model(&models.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusFailed,
			"attempts":   attempts,
			"last_error": lastErr,
		}).Error
}
