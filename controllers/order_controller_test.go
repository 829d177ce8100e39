package controllers

import (
	"net/http"
	"testing"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupOrderRouter(orders OrderWorkflow, user *models.User) *gin.Engine {
	h := NewOrderController(orders)
	r := utils.NewTestRouter()
	api := r.Group("/api")
	if user != nil {
		api.Use(as(user))
	}
	api.POST("/orders", h.PlaceOrder)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/user", h.ListMyOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.PATCH("/orders/:id/status", h.UpdateStatus)
	api.POST("/orders/:id/tracking", h.AttachTracking)
	api.GET("/orders/:id/tracking", h.GetTracking)
	api.GET("/orders/:id/invoice", h.DownloadInvoice)
	api.DELETE("/orders/:id", h.DeleteOrder)
	return r
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": 3, "quantity": 2, "price": 29.99},
		},
		"shipping": map[string]interface{}{
			"method": "EXPRESS", "address": "Rua Augusta 100", "city": "Lisboa",
			"postalCode": "1100-053", "country": "PT", "cost": 7.5,
		},
		"payment": map[string]interface{}{"method": "MULTIBANCO", "amount": 67.48},
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Run("created with multibanco reference", func(t *testing.T) {
		orders := new(MockOrderWorkflow)
		entity, reference := "21234", "123456789"
		orders.On("PlaceOrder", mock.Anything, customer.ID, mock.MatchedBy(func(in services.PlaceOrderInput) bool {
			return len(in.Items) == 1 &&
				in.Items[0].ProductID == 3 && in.Items[0].Quantity == 2 &&
				in.Items[0].Price.Equal(decimal.RequireFromString("29.99")) &&
				in.Shipping.Method == models.ShippingMethodExpress &&
				in.Payment.Method == models.PaymentMethodMultibanco &&
				in.Payment.Amount.Equal(decimal.RequireFromString("67.48")) &&
				in.CouponID == nil && !in.DiscountAmount.Valid
		})).Return(&models.Order{
			ID:      41,
			Status:  models.OrderStatusPending,
			Payment: &models.Payment{Method: models.PaymentMethodMultibanco, Entity: &entity, Reference: &reference},
		}, nil).Once()

		resp := utils.MakeTestRequest(t, setupOrderRouter(orders, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: checkoutBody(),
		})
		utils.AssertResponse(t, resp, http.StatusCreated, map[string]interface{}{
			"orderId": float64(41), "status": "PENDING", "entity": "21234", "reference": "123456789",
		})
		orders.AssertExpectations(t)
	})

	t.Run("missing items", func(t *testing.T) {
		body := checkoutBody()
		delete(body, "items")
		resp := utils.MakeTestRequest(t, setupOrderRouter(new(MockOrderWorkflow), customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: body,
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "items is required"})
	})

	t.Run("unknown payment method", func(t *testing.T) {
		body := checkoutBody()
		body["payment"] = map[string]interface{}{"method": "CASH", "amount": 10}
		resp := utils.MakeTestRequest(t, setupOrderRouter(new(MockOrderWorkflow), customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: body,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, resp.Body["message"], "payment.method must be one of")
	})

	t.Run("insufficient stock is a conflict", func(t *testing.T) {
		orders := new(MockOrderWorkflow)
		orders.On("PlaceOrder", mock.Anything, customer.ID, mock.Anything).
			Return(nil, utils.ConflictError("Insufficient stock for DualSense: 1 available, 2 requested", services.ErrInsufficientStock)).Once()

		resp := utils.MakeTestRequest(t, setupOrderRouter(orders, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: checkoutBody(),
		})
		utils.AssertResponse(t, resp, http.StatusConflict, map[string]interface{}{
			"message": "Insufficient stock for DualSense: 1 available, 2 requested",
		})
	})

	t.Run("unknown coupon", func(t *testing.T) {
		orders := new(MockOrderWorkflow)
		orders.On("PlaceOrder", mock.Anything, customer.ID, mock.MatchedBy(func(in services.PlaceOrderInput) bool {
			return in.CouponID != nil && *in.CouponID == 999
		})).Return(nil, utils.NotFoundError("Coupon not found", nil)).Once()

		body := checkoutBody()
		body["couponId"] = 999
		resp := utils.MakeTestRequest(t, setupOrderRouter(orders, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: body,
		})
		utils.AssertResponse(t, resp, http.StatusNotFound, map[string]interface{}{"message": "Coupon not found"})
		orders.AssertExpectations(t)
	})

	t.Run("aborted transaction", func(t *testing.T) {
		orders := new(MockOrderWorkflow)
		orders.On("PlaceOrder", mock.Anything, customer.ID, mock.Anything).
			Return(nil, utils.OrderCreationFailedError(assert.AnError)).Once()

		resp := utils.MakeTestRequest(t, setupOrderRouter(orders, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: checkoutBody(),
		})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to create order", resp.Body["message"])
	})

	t.Run("requires a caller", func(t *testing.T) {
		resp := utils.MakeTestRequest(t, setupOrderRouter(new(MockOrderWorkflow), nil), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/orders", Body: checkoutBody(),
		})
		utils.AssertResponse(t, resp, http.StatusUnauthorized, map[string]interface{}{"message": "Please login for access"})
	})
}

func TestGetOrder(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("GetOrder", mock.Anything, uint(5), identityOf(customer)).
		Return(&models.Order{ID: 5, UserID: customer.ID, Status: models.OrderStatusPaid}, nil).Once()
	orders.On("GetOrder", mock.Anything, uint(6), identityOf(customer)).
		Return(nil, utils.ForbiddenError("You are not allowed to access this order")).Once()
	orders.On("GetOrder", mock.Anything, uint(8), identityOf(customer)).
		Return(nil, utils.NotFoundError("Order not found", nil)).Once()
	router := setupOrderRouter(orders, customer)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/orders/5"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), resp.Body["id"])
	assert.Equal(t, "PAID", resp.Body["status"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/orders/6"})
	utils.AssertResponse(t, resp, http.StatusForbidden, map[string]interface{}{"message": "You are not allowed to access this order"})

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/orders/8"})
	utils.AssertResponse(t, resp, http.StatusNotFound, map[string]interface{}{"message": "Order not found"})

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/orders/abc"})
	utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "Invalid order ID"})

	orders.AssertExpectations(t)
}

func TestListOrders(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("ListOrders", mock.Anything, services.OrderFilter{Status: "SHIPPED", UserID: 7},
		mock.MatchedBy(func(p *utils.Pagination) bool { return p.Page == 2 && p.Limit == 5 })).
		Run(func(args mock.Arguments) {
			args.Get(2).(*utils.Pagination).SetTotal(12)
		}).
		Return([]models.Order{{ID: 9}}, nil).Once()

	resp := utils.MakeTestRequest(t, setupOrderRouter(orders, admin), utils.TestRequest{
		Method: http.MethodGet, Path: "/api/orders?status=SHIPPED&userId=7&page=2&limit=5",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Body["orders"], 1)
	assert.Equal(t, map[string]interface{}{
		"total": float64(12), "page": float64(2), "perPage": float64(5), "totalPages": float64(3),
	}, resp.Body["pagination"])
	orders.AssertExpectations(t)
}

func TestListMyOrders(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("ListUserOrders", mock.Anything, customer.ID).Return([]services.UserOrder{}, nil).Once()

	resp := utils.MakeTestRequest(t, setupOrderRouter(orders, customer), utils.TestRequest{
		Method: http.MethodGet, Path: "/api/orders/user",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(resp.Raw))
	orders.AssertExpectations(t)
}

func TestUpdateStatus(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("UpdateStatus", mock.Anything, uint(3), models.OrderStatusShipped).
		Return(&models.Order{ID: 3, Status: models.OrderStatusShipped}, nil).Once()
	router := setupOrderRouter(orders, admin)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPatch, Path: "/api/orders/3/status", Body: map[string]string{"status": "SHIPPED"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SHIPPED", resp.Body["status"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPatch, Path: "/api/orders/3/status", Body: map[string]string{"status": "LOST"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body["message"], "status must be one of")

	orders.AssertExpectations(t)
}

func TestTracking(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("AttachTracking", mock.Anything, uint(3), "CTT-1234").
		Return(&models.Order{ID: 3, Status: models.OrderStatusShipped}, nil).Once()
	orders.On("GetTracking", mock.Anything, uint(3), identityOf(admin)).
		Return(nil, utils.NotFoundError("Tracking information not available for this order", nil)).Once()
	router := setupOrderRouter(orders, admin)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost, Path: "/api/orders/3/tracking", Body: map[string]string{"trackingCode": "CTT-1234"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost, Path: "/api/orders/3/tracking", Body: map[string]string{},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "trackingCode is required"})

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/orders/3/tracking"})
	utils.AssertResponse(t, resp, http.StatusNotFound, map[string]interface{}{
		"message": "Tracking information not available for this order",
	})
	orders.AssertExpectations(t)
}

func TestDeleteOrder(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("DeleteOrder", mock.Anything, uint(4)).Return(nil).Once()

	resp := utils.MakeTestRequest(t, setupOrderRouter(orders, admin), utils.TestRequest{
		Method: http.MethodDelete, Path: "/api/orders/4",
	})
	utils.AssertResponse(t, resp, http.StatusOK, map[string]interface{}{"message": "Order deleted"})
	orders.AssertExpectations(t)
}

func TestDownloadInvoice(t *testing.T) {
	orders := new(MockOrderWorkflow)
	orders.On("GetOrder", mock.Anything, uint(12), identityOf(customer)).Return(&models.Order{
		ID:          12,
		Status:      models.OrderStatusPaid,
		TotalAmount: decimal.RequireFromString("10.00"),
		Items:       []models.OrderItem{{ProductID: 1, Quantity: 1, Price: decimal.RequireFromString("10.00")}},
	}, nil).Once()

	resp := utils.MakeTestRequest(t, setupOrderRouter(orders, customer), utils.TestRequest{
		Method: http.MethodGet, Path: "/api/orders/12/invoice",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=invoice-12.pdf", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "%PDF-", string(resp.Raw[:5]))
	orders.AssertExpectations(t)
}
