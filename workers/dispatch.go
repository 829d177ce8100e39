package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	notificationQueue = "notifications"
	notificationDLX   = "notifications.dlx"
	notificationDLQ   = "notifications.dlq"
)

// OrderLoader reads the order graph a notification is about
type OrderLoader interface {
	LoadOrderGraph(ctx context.Context, orderID uint) (*models.Order, error)
}

// MailDispatcher renders the email of a notification and sends it directly
type MailDispatcher struct {
	Orders OrderLoader
	Mailer utils.Mailer
}

// Dispatch implements Dispatcher
func (d *MailDispatcher) Dispatch(ctx context.Context, n models.NotificationOutbox) error {
	tpl, ok := utils.TemplateForNotification(n.Kind)
	if !ok {
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	order, err := d.Orders.LoadOrderGraph(ctx, n.OrderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", n.OrderID, err)
	}
	return utils.SendTemplate(ctx, d.Mailer, n.Recipient, tpl, order, order.User)
}

// NotificationMessage is the broker payload for one outbox row
type NotificationMessage struct {
	NotificationID uint   `json:"notificationId"`
	Kind           string `json:"kind"`
	OrderID        uint   `json:"orderId"`
	Recipient      string `json:"recipient"`
	Attempts       int    `json:"attempts"`
}

func messageFor(n models.NotificationOutbox) NotificationMessage {
	return NotificationMessage{
		NotificationID: n.ID,
		Kind:           n.Kind,
		OrderID:        n.OrderID,
		Recipient:      n.Recipient,
		Attempts:       n.Attempts,
	}
}

func (m NotificationMessage) outbox() models.NotificationOutbox {
	return models.NotificationOutbox{
		ID:        m.NotificationID,
		Kind:      m.Kind,
		OrderID:   m.OrderID,
		Recipient: m.Recipient,
		Attempts:  m.Attempts,
	}
}

// Publisher is the part of an AMQP channel used to publish
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// BrokerPublisher hands notifications to RabbitMQ for the mail consumer
type BrokerPublisher struct {
	Channel Publisher
}

// Forwards implements Forwarder
func (p *BrokerPublisher) Forwards() {}

// Dispatch implements Dispatcher
func (p *BrokerPublisher) Dispatch(ctx context.Context, n models.NotificationOutbox) error {
	body, err := json.Marshal(messageFor(n))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = p.Channel.PublishWithContext(ctx, "", notificationQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    strconv.FormatUint(uint64(n.ID), 10),
		Type:         n.Kind,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification %d: %w", n.ID, err)
	}
	return nil
}

// SetupRabbitMQ declares the notification queue with its dead-letter exchange and queue
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(notificationDLX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(notificationDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(notificationDLQ, notificationQueue, notificationDLX, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(notificationQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    notificationDLX,
		"x-dead-letter-routing-key": notificationQueue,
	}); err != nil {
		return fmt.Errorf("declare notification queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}
