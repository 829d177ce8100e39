package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gamershop/gamershop/middleware"
	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
)

// OrderWorkflow is the order side of the services layer
type OrderWorkflow interface {
	PlaceOrder(ctx context.Context, userID uint, in services.PlaceOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error)
	AttachTracking(ctx context.Context, orderID uint, trackingCode string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uint, requester utils.Identity) (*models.Order, error)
	GetTracking(ctx context.Context, orderID uint, requester utils.Identity) (*services.TrackingInfo, error)
	ListUserOrders(ctx context.Context, userID uint) ([]services.UserOrder, error)
	ListOrders(ctx context.Context, filter services.OrderFilter, p *utils.Pagination) ([]models.Order, error)
	DeleteOrder(ctx context.Context, orderID uint) error
}

// OrderController serves the order endpoints. Errors are answered as {message}.
type OrderController struct {
	Orders OrderWorkflow
}

// NewOrderController creates an OrderController
func NewOrderController(orders OrderWorkflow) *OrderController {
	return &OrderController{Orders: orders}
}

func requireIdentity(c *gin.Context) (utils.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.Message(c, http.StatusUnauthorized, "Please login for access")
	}
	return identity, ok
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.Message(c, http.StatusBadRequest, "Invalid order ID")
	}
	return id, ok
}

// PlaceOrder handles POST /api/orders
func (h *OrderController) PlaceOrder(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogDebug("Invalid order request from user %d: %v", identity.UserID, err)
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}

	order, err := h.Orders.PlaceOrder(c.Request.Context(), identity.UserID, req.toInput())
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPlaceOrderResponse(order))
}

// ListMyOrders handles GET /api/orders/user
func (h *OrderController) ListMyOrders(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	orders, err := h.Orders.ListUserOrders(c.Request.Context(), identity.UserID)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder handles GET /api/orders/:id
func (h *OrderController) GetOrder(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.Orders.GetOrder(c.Request.Context(), id, identity)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/orders (admin)
func (h *OrderController) ListOrders(c *gin.Context) {
	p := utils.NewPagination(c)
	filter := services.OrderFilter{Status: c.Query("status"), UserID: queryUint(c, "userId")}

	orders, err := h.Orders.ListOrders(c.Request.Context(), filter, p)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"total":      p.Total,
			"page":       p.Page,
			"perPage":    p.Limit,
			"totalPages": p.LastPage,
		},
	})
}

// UpdateStatus handles PATCH /api/orders/:id/status (admin)
func (h *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AttachTracking handles POST /api/orders/:id/tracking (admin)
func (h *OrderController) AttachTracking(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Message(c, http.StatusBadRequest, utils.FirstBindingMessage(err))
		return
	}

	order, err := h.Orders.AttachTracking(c.Request.Context(), id, req.TrackingCode)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetTracking handles GET /api/orders/:id/tracking
func (h *OrderController) GetTracking(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	info, err := h.Orders.GetTracking(c.Request.Context(), id, identity)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeleteOrder handles DELETE /api/orders/:id (admin)
func (h *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	if err := h.Orders.DeleteOrder(c.Request.Context(), id); err != nil {
		utils.RespondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// DownloadInvoice handles GET /api/orders/:id/invoice
func (h *OrderController) DownloadInvoice(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.Orders.GetOrder(c.Request.Context(), id, identity)
	if err != nil {
		utils.RespondMessageError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteInvoice(&buf, order); err != nil {
		utils.RespondMessageError(c, utils.InternalError("Failed to generate invoice", err))
		return
	}
	utils.LogInfo("Invoice generated for order %d", order.ID)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%d.pdf", order.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
