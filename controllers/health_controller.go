package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ReadinessCheck reports whether one dependency is usable
type ReadinessCheck func(ctx context.Context) error

// HealthController answers liveness and readiness checks
type HealthController struct {
	checks map[string]ReadinessCheck
}

// NewHealthController creates a HealthController with the postgres check.
// Redis and RabbitMQ are only checked when they are configured.
func NewHealthController(db *gorm.DB, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthController {
	h := &HealthController{checks: map[string]ReadinessCheck{}}
	h.AddCheck("postgres", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisClient != nil {
		h.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if amqpConn != nil {
		h.AddCheck("rabbitmq", func(context.Context) error {
			if amqpConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
	}
	return h
}

// AddCheck registers a named readiness check
func (h *HealthController) AddCheck(name string, check ReadinessCheck) {
	if h.checks == nil {
		h.checks = map[string]ReadinessCheck{}
	}
	h.checks[name] = check
}

// Healthz handles GET /healthz
func (h *HealthController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthController) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok"}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			body[name] = "unavailable"
			body["status"] = "error"
			code = http.StatusServiceUnavailable
			continue
		}
		body[name] = "connected"
	}
	c.JSON(code, body)
}
