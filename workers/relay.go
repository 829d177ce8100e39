package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
)

// maxBackoff caps the delay between two attempts of one notification
const maxBackoff = time.Hour

// OutboxSource is the storage side of the relay
type OutboxSource interface {
	ClaimDue(ctx context.Context, limit int) ([]models.NotificationOutbox, error)
	MarkSent(ctx context.Context, id uint) error
	MarkPublished(ctx context.Context, id uint) error
	MarkRetry(ctx context.Context, id uint, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uint, attempts int, lastErr string) error
}

// Dispatcher delivers one notification, by email or through the broker
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.NotificationOutbox) error
}

// Forwarder is a Dispatcher that only hands the notification on. The row is
// marked published and the receiving worker records the final outcome.
type Forwarder interface {
	Dispatcher
	Forwards()
}

// RelayConfig tunes polling and retries
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
}

func (cfg RelayConfig) withDefaults() RelayConfig {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 10 * time.Second
	}
	return cfg
}

// NotificationRelay moves committed outbox rows to their dispatcher. It polls
// on an interval and can be woken early after a commit.
type NotificationRelay struct {
	source     OutboxSource
	dispatcher Dispatcher
	cfg        RelayConfig
	now        func() time.Time

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewNotificationRelay creates a relay. Zero config values fall back to defaults.
func NewNotificationRelay(source OutboxSource, dispatcher Dispatcher, cfg RelayConfig) *NotificationRelay {
	return &NotificationRelay{
		source:     source,
		dispatcher: dispatcher,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Wake asks the relay to poll now. It never blocks.
func (r *NotificationRelay) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start runs the relay loop until Stop is called or ctx ends
func (r *NotificationRelay) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()

		utils.LogInfo("Notification relay started (poll every %s)", r.cfg.PollInterval)
		for {
			if _, err := r.RunOnce(ctx); err != nil {
				utils.LogError("Notification relay poll failed: %v", err)
			}
			select {
			case <-ticker.C:
			case <-r.wake:
			case <-r.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for the in-flight batch
func (r *NotificationRelay) Stop() {
	close(r.done)
	r.wg.Wait()
	utils.LogInfo("Notification relay stopped")
}

// RunOnce claims one batch of due notifications and dispatches it. It returns
// how many were delivered or handed to the broker.
func (r *NotificationRelay) RunOnce(ctx context.Context) (int, error) {
	rows, err := r.source.ClaimDue(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range rows {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if r.deliver(ctx, n) {
			sent++
		}
	}
	return sent, nil
}

func (r *NotificationRelay) deliver(ctx context.Context, n models.NotificationOutbox) bool {
	err := r.dispatcher.Dispatch(ctx, n)
	if err != nil {
		recordFailure(ctx, r.source, r.cfg, r.now(), n, err)
		return false
	}

	if _, ok := r.dispatcher.(Forwarder); ok {
		if markErr := r.source.MarkPublished(ctx, n.ID); markErr != nil {
			utils.LogError("Failed to mark notification %d published: %v", n.ID, markErr)
		}
		utils.LogEvent(slog.LevelInfo, "notification published", "notification_id", n.ID, "kind", n.Kind, "order_id", n.OrderID)
		return true
	}

	if markErr := r.source.MarkSent(ctx, n.ID); markErr != nil {
		utils.LogError("Failed to mark notification %d sent: %v", n.ID, markErr)
	}
	utils.LogEvent(slog.LevelInfo, "notification sent", "notification_id", n.ID, "kind", n.Kind, "order_id", n.OrderID)
	return true
}

// recordFailure counts a failed attempt on n. It reschedules the row with
// backoff, or marks it failed once MaxAttempts is reached and returns true.
func recordFailure(ctx context.Context, source OutboxSource, cfg RelayConfig, now time.Time, n models.NotificationOutbox, err error) bool {
	attempts := n.Attempts + 1
	if attempts >= cfg.MaxAttempts {
		failure := utils.NotificationFailedError(err)
		utils.LogEvent(slog.LevelError, failure.Message,
			"notification_id", n.ID, "kind", n.Kind, "order_id", n.OrderID,
			"attempts", attempts, "error", err.Error())
		if markErr := source.MarkFailed(ctx, n.ID, attempts, err.Error()); markErr != nil {
			utils.LogError("Failed to mark notification %d failed: %v", n.ID, markErr)
		}
		return true
	}

	next := now.Add(Backoff(cfg.BaseBackoff, attempts))
	utils.LogEvent(slog.LevelWarn, "notification delivery failed, retrying",
		"notification_id", n.ID, "kind", n.Kind, "attempts", attempts,
		"next_attempt_at", next, "error", err.Error())
	if markErr := source.MarkRetry(ctx, n.ID, attempts, next, err.Error()); markErr != nil {
		utils.LogError("Failed to reschedule notification %d: %v", n.ID, markErr)
	}
	return false
}

// Backoff returns base doubled for every attempt after the first, capped at an hour
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
