package controllers

import (
	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is one cart line
type OrderItemRequest struct {
	ProductID uint            `json:"productId" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Price     decimal.Decimal `json:"price"`
}

// ShippingRequest is the delivery selection
type ShippingRequest struct {
	Method     string          `json:"method" binding:"omitempty,shippingmethod"`
	FullName   string          `json:"fullName" binding:"max=120"`
	Address    string          `json:"address" binding:"max=255"`
	City       string          `json:"city" binding:"max=100"`
	PostalCode string          `json:"postalCode" binding:"max=20"`
	Country    string          `json:"country" binding:"max=100"`
	Phone      string          `json:"phone" binding:"max=30"`
	Cost       decimal.Decimal `json:"cost"`
}

// PaymentRequest is the payment selection. Amount is the grand total.
type PaymentRequest struct {
	Method     string          `json:"method" binding:"required,paymentmethod"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" binding:"omitempty,len=3"`
	CardNumber string          `json:"cardNumber"`
	MBWayPhone string          `json:"mbwayPhone"`
}

// PlaceOrderRequest is the checkout body
type PlaceOrderRequest struct {
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Shipping       ShippingRequest    `json:"shipping"`
	Payment        PaymentRequest     `json:"payment"`
	CouponID       *uint              `json:"couponId"`
	DiscountAmount *decimal.Decimal   `json:"discountAmount"`
}

func (r PlaceOrderRequest) toInput() services.PlaceOrderInput {
	items := make([]services.OrderItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = services.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price}
	}

	in := services.PlaceOrderInput{
		Items: items,
		Shipping: services.ShippingInput{
			Method:     r.Shipping.Method,
			FullName:   r.Shipping.FullName,
			Address:    r.Shipping.Address,
			City:       r.Shipping.City,
			PostalCode: r.Shipping.PostalCode,
			Country:    r.Shipping.Country,
			Phone:      r.Shipping.Phone,
			Cost:       r.Shipping.Cost,
		},
		Payment: services.PaymentInput{
			Method:     r.Payment.Method,
			Amount:     r.Payment.Amount,
			Currency:   r.Payment.Currency,
			CardNumber: r.Payment.CardNumber,
			MBWayPhone: r.Payment.MBWayPhone,
		},
	}
	if r.CouponID != nil && *r.CouponID != 0 {
		in.CouponID = r.CouponID
	}
	if r.DiscountAmount != nil {
		in.DiscountAmount = decimal.NewNullDecimal(*r.DiscountAmount)
	}
	return in
}

// PlaceOrderResponse answers a successful checkout
type PlaceOrderResponse struct {
	OrderID   uint    `json:"orderId"`
	Status    string  `json:"status"`
	Entity    *string `json:"entity,omitempty"`
	Reference *string `json:"reference,omitempty"`
}

func newPlaceOrderResponse(order *models.Order) PlaceOrderResponse {
	resp := PlaceOrderResponse{OrderID: order.ID, Status: order.Status}
	if p := order.Payment; p != nil && p.Method == models.PaymentMethodMultibanco {
		resp.Entity = p.Entity
		resp.Reference = p.Reference
	}
	return resp
}

// UpdateStatusRequest is the admin status change body
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,orderstatus"`
}

// TrackingRequest attaches a carrier tracking code
type TrackingRequest struct {
	TrackingCode string `json:"trackingCode" binding:"required,max=100"`
}
