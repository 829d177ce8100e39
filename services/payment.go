package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/shopspring/decimal"
)

// MultibancoGenerator issues the entity/reference pair shown to customers
// paying by Multibanco.
type MultibancoGenerator interface {
	Generate() (entity, reference string, err error)
}

// RandomMultibanco draws a 5-digit entity and a 9-digit reference from crypto/rand
type RandomMultibanco struct{}

// Generate implements MultibancoGenerator
func (RandomMultibanco) Generate() (string, string, error) {
	entity, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", "", fmt.Errorf("generate multibanco entity: %w", err)
	}
	reference, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return "", "", fmt.Errorf("generate multibanco reference: %w", err)
	}
	return fmt.Sprintf("%05d", entity.Int64()+10000), fmt.Sprintf("%09d", reference.Int64()), nil
}

// PaymentInput is the payment selection sent at checkout. Amount is the grand
// total already computed by the client.
type PaymentInput struct {
	Method     string
	Amount     decimal.Decimal
	Currency   string
	CardNumber string
	MBWayPhone string
}

func (p PaymentInput) validate() error {
	if !isPaymentMethod(p.Method) {
		return utils.ValidationFailed("Unsupported payment method: " + p.Method)
	}
	if !p.Amount.IsPositive() {
		return utils.ValidationFailed("Payment amount must be greater than 0")
	}
	switch p.Method {
	case models.PaymentMethodCreditCard:
		digits := utils.DigitsOnly(p.CardNumber)
		if len(digits) < 12 || len(digits) > 19 {
			return utils.ValidationFailed("A valid card number is required for credit card payments")
		}
	case models.PaymentMethodMBWay:
		if strings.TrimSpace(p.MBWayPhone) == "" {
			return utils.ValidationFailed("A phone number is required for MB WAY payments")
		}
	}
	return nil
}

func isPaymentMethod(method string) bool {
	for _, m := range models.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// LastFour returns the last four digits of a card number
func LastFour(cardNumber string) string {
	digits := utils.DigitsOnly(cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// buildPayment turns the checkout selection into the Payment row. The full card
// number never leaves this function.
func buildPayment(orderID uint, in PaymentInput, mb MultibancoGenerator) (*models.Payment, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}

	payment := &models.Payment{
		OrderID:  orderID,
		Method:   in.Method,
		Status:   models.PaymentStatusPending,
		Amount:   in.Amount.Round(2),
		Currency: currency,
	}

	switch in.Method {
	case models.PaymentMethodCreditCard:
		last := LastFour(in.CardNumber)
		payment.LastDigits = &last
	case models.PaymentMethodMBWay:
		phone := strings.TrimSpace(in.MBWayPhone)
		payment.MBWayPhone = &phone
	case models.PaymentMethodMultibanco:
		entity, reference, err := mb.Generate()
		if err != nil {
			return nil, err
		}
		payment.Entity = &entity
		payment.Reference = &reference
	}
	return payment, nil
}
