package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gamershop/gamershop/utils"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

// DeliverySource is the part of an AMQP channel used to consume
type DeliverySource interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// IdempotencyStore remembers which notifications were already delivered
type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string, ttl time.Duration) error
}

// RedisIdempotency keeps delivery markers in Redis
type RedisIdempotency struct {
	Client *redis.Client
}

// Seen implements IdempotencyStore
func (r RedisIdempotency) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember implements IdempotencyStore
func (r RedisIdempotency) Remember(ctx context.Context, key string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, "1", ttl).Err()
}

func sentKey(notificationID uint) string {
	return "notification_sent:" + strconv.FormatUint(uint64(notificationID), 10)
}

// MailConsumer reads notification messages from RabbitMQ and sends the emails.
// It records the outcome on the outbox row: a failed send is rescheduled with
// backoff so the relay publishes it again, and is dead-lettered once the
// attempts run out. A notification already marked in the idempotency store is
// acknowledged without sending again.
type MailConsumer struct {
	source DeliverySource
	mail   Dispatcher
	seen   IdempotencyStore
	outbox OutboxSource
	cfg    RelayConfig
	now    func() time.Time
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewMailConsumer creates a MailConsumer. cfg supplies MaxAttempts and BaseBackoff.
func NewMailConsumer(source DeliverySource, mail Dispatcher, seen IdempotencyStore, outbox OutboxSource, cfg RelayConfig) *MailConsumer {
	return &MailConsumer{
		source: source,
		mail:   mail,
		seen:   seen,
		outbox: outbox,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Start begins consuming the notification queue
func (c *MailConsumer) Start(ctx context.Context) error {
	msgs, err := c.source.Consume(notificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.processMessage(ctx, msg)
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	utils.LogInfo("Mail consumer started")
	return nil
}

// Stop ends consumption and waits for the message in progress
func (c *MailConsumer) Stop() {
	close(c.done)
	c.wg.Wait()
}

func (c *MailConsumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	var m NotificationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		utils.LogError("Unmarshal notification message: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	key := sentKey(m.NotificationID)
	seen, err := c.seen.Seen(ctx, key)
	if err != nil {
		utils.LogError("Check idempotency key %s: %v", key, err)
		_ = msg.Nack(false, true)
		return
	}
	if seen {
		utils.LogEvent(slog.LevelInfo, "notification already delivered, skipping", "notification_id", m.NotificationID)
		c.markSent(ctx, m.NotificationID)
		_ = msg.Ack(false)
		return
	}

	if err := c.mail.Dispatch(ctx, m.outbox()); err != nil {
		if recordFailure(ctx, c.outbox, c.cfg, c.now(), m.outbox(), err) {
			_ = msg.Nack(false, false)
			return
		}
		_ = msg.Ack(false)
		return
	}

	if err := c.seen.Remember(ctx, key, idempotencyTTL); err != nil {
		utils.LogError("Set idempotency key %s: %v", key, err)
	}
	c.markSent(ctx, m.NotificationID)
	_ = msg.Ack(false)
	utils.LogEvent(slog.LevelInfo, "notification email sent", "notification_id", m.NotificationID, "kind", m.Kind)
}

func (c *MailConsumer) markSent(ctx context.Context, id uint) {
	if err := c.outbox.MarkSent(ctx, id); err != nil {
		utils.LogError("Failed to mark notification %d sent: %v", id, err)
	}
}
