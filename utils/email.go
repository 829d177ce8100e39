package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gamershop/gamershop/models"
	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a rendered HTML email to one recipient
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a gomail backed mailer
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send implements Mailer
func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// PostmarkMailer sends mail through the Postmark API
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

// NewPostmarkMailer creates a Postmark backed mailer
func NewPostmarkMailer(serverToken, from string) *PostmarkMailer {
	return &PostmarkMailer{client: postmark.NewClient(serverToken, ""), from: from}
}

// Send implements Mailer
func (m *PostmarkMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	_, err := m.client.SendEmail(postmark.Email{
		From:       m.from,
		To:         to,
		Subject:    subject,
		HtmlBody:   htmlBody,
		Tag:        "order",
		TrackOpens: false,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendGridMailer sends mail through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer creates a SendGrid backed mailer
func NewSendGridMailer(apiKey, fromName, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

// Send implements Mailer
func (m *SendGridMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), "", htmlBody)
	resp, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("failed to send email: sendgrid returned %d", resp.StatusCode)
	}
	return nil
}

// LogMailer only logs outgoing mail. Used in development.
type LogMailer struct{}

// Send implements Mailer
func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	LogInfo("Email to %s: %s", to, subject)
	return nil
}

// EmailTemplate renders the subject and body of an order email
type EmailTemplate func(order *models.Order, user *models.User) (subject, body string, err error)

// SendTemplate renders tpl and hands the result to m
func SendTemplate(ctx context.Context, m Mailer, to string, tpl EmailTemplate, order *models.Order, user *models.User) error {
	subject, body, err := tpl(order, user)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return m.Send(ctx, to, subject, body)
}

const layoutHTML = `{{define "items"}}<table>
<tr><th>Product</th><th>Qty</th><th>Price</th></tr>
{{range .Order.Items}}<tr><td>{{if .Product}}{{.Product.Name}}{{else}}#{{.ProductID}}{{end}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}</table>{{end}}`

var orderTemplates = template.Must(template.New("orders").Parse(layoutHTML + `
{{define "confirmation"}}<h2>Thank you for your order, {{.Name}}!</h2>
<p>Order <strong>#{{.Order.ID}}</strong> was placed and is now {{.Order.Status}}.</p>
{{template "items" .}}
<p>Total: <strong>{{.Order.TotalAmount.StringFixed 2}} {{.Currency}}</strong></p>
{{with .Order.Payment}}{{if .Entity}}<p>Multibanco entity {{.Entity}}, reference {{.Reference}}</p>{{end}}{{end}}{{end}}
{{define "status"}}<h2>Order #{{.Order.ID}} update</h2>
<p>Hello {{.Name}}, your order is now <strong>{{.Order.Status}}</strong>.</p>{{end}}
{{define "shipped"}}<h2>Order #{{.Order.ID}} is on its way</h2>
<p>Hello {{.Name}}, your order has shipped.</p>
{{with .Order.Shipping}}{{if .TrackingCode}}<p>Tracking code: <strong>{{.TrackingCode}}</strong></p>{{end}}{{end}}{{end}}
`))

type orderEmailData struct {
	Name     string
	Order    *models.Order
	Currency string
}

func renderOrder(name, subject string) EmailTemplate {
	return func(order *models.Order, user *models.User) (string, string, error) {
		if order == nil {
			return "", "", fmt.Errorf("order is required")
		}
		data := orderEmailData{Order: order, Currency: models.DefaultCurrency}
		if user != nil {
			data.Name = user.FirstName
			if data.Name == "" {
				data.Name = user.Username
			}
		}
		if order.Payment != nil && order.Payment.Currency != "" {
			data.Currency = order.Payment.Currency
		}

		var buf bytes.Buffer
		if err := orderTemplates.ExecuteTemplate(&buf, name, data); err != nil {
			return "", "", err
		}
		return fmt.Sprintf(subject, order.ID), buf.String(), nil
	}
}

var (
	// OrderConfirmationEmail is sent after checkout
	OrderConfirmationEmail = renderOrder("confirmation", "GamerShop order #%d confirmed")
	// OrderStatusEmail is sent when an admin changes the order status
	OrderStatusEmail = renderOrder("status", "GamerShop order #%d status update")
	// OrderShippedEmail is sent when a tracking code is attached
	OrderShippedEmail = renderOrder("shipped", "GamerShop order #%d has shipped")
)

// TemplateForNotification maps an outbox kind to its email template
func TemplateForNotification(kind string) (EmailTemplate, bool) {
	switch kind {
	case models.NotificationOrderConfirmation:
		return OrderConfirmationEmail, true
	case models.NotificationOrderStatusUpdate:
		return OrderStatusEmail, true
	case models.NotificationOrderShipped:
		return OrderShippedEmail, true
	}
	return nil, false
}
