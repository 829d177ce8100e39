package config

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// InitRabbitMQ dials the broker and opens a channel.
// It returns nil values when RabbitMQ is not configured.
func InitRabbitMQ(cfg RabbitMQConfig) (*amqp.Connection, *amqp.Channel, error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	return conn, ch, nil
}
