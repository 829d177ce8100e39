package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier is woken after a commit that enqueued notifications
type Notifier interface {
	Wake()
}

// ProductCache drops cached product data whose stock changed
type ProductCache interface {
	InvalidateProducts(ctx context.Context, ids ...uint)
}

// OrderItemInput is one cart line
type OrderItemInput struct {
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

// ShippingInput is the delivery selection sent at checkout
type ShippingInput struct {
	Method     string
	FullName   string
	Address    string
	City       string
	PostalCode string
	Country    string
	Phone      string
	Cost       decimal.Decimal
}

// PlaceOrderInput is a cart snapshot plus shipping and payment selections
type PlaceOrderInput struct {
	Items          []OrderItemInput
	Shipping       ShippingInput
	Payment        PaymentInput
	CouponID       *uint
	DiscountAmount decimal.NullDecimal
}

func (in *PlaceOrderInput) validate() error {
	if len(in.Items) == 0 {
		return utils.ValidationFailed("Order must contain at least one item")
	}
	for i, item := range in.Items {
		if item.ProductID == 0 {
			return utils.ValidationFailed(fmt.Sprintf("Item %d: productId is required", i+1))
		}
		if item.Quantity < 1 {
			return utils.ValidationFailed(fmt.Sprintf("Item %d: quantity must be at least 1", i+1))
		}
		if item.Price.IsNegative() {
			return utils.ValidationFailed(fmt.Sprintf("Item %d: price cannot be negative", i+1))
		}
	}

	if in.Shipping.Method == "" {
		in.Shipping.Method = models.ShippingMethodStandard
	}
	if !isShippingMethod(in.Shipping.Method) {
		return utils.ValidationFailed("Unsupported shipping method: " + in.Shipping.Method)
	}
	if in.Shipping.Method != models.ShippingMethodPickup {
		if strings.TrimSpace(in.Shipping.Address) == "" || strings.TrimSpace(in.Shipping.City) == "" ||
			strings.TrimSpace(in.Shipping.PostalCode) == "" || strings.TrimSpace(in.Shipping.Country) == "" {
			return utils.ValidationFailed("Shipping address, city, postal code and country are required")
		}
		if errs := utils.ValidateShippingAddress(in.Shipping.Address, in.Shipping.City, in.Shipping.PostalCode, in.Shipping.Country); len(errs) > 0 {
			return utils.ValidationFailed(errs[0].Message)
		}
	}
	if in.Shipping.Cost.IsNegative() {
		return utils.ValidationFailed("Shipping cost cannot be negative")
	}

	if in.DiscountAmount.Valid && in.DiscountAmount.Decimal.IsNegative() {
		return utils.ValidationFailed("Discount amount cannot be negative")
	}
	return in.Payment.validate()
}

func isShippingMethod(method string) bool {
	for _, m := range models.ShippingMethods {
		if m == method {
			return true
		}
	}
	return false
}

// OrderFilter narrows the admin order listing
type OrderFilter struct {
	Status string
	UserID uint
}

// TrackingInfo is the public tracking view of an order
type TrackingInfo struct {
	OrderID        uint      `json:"orderId"`
	Status         string    `json:"status"`
	ShippingStatus string    `json:"shippingStatus"`
	Method         string    `json:"method"`
	TrackingCode   string    `json:"trackingCode"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserOrderItem is an order line annotated with the owner's review state
type UserOrderItem struct {
	models.OrderItem
	Reviewed bool `json:"reviewed"`
}

// UserOrder is an order as listed to its owner
type UserOrder struct {
	models.Order
	Items []UserOrderItem `json:"items"`
}

// OrderService runs the order workflow: checkout, status changes, tracking
// and the reads around them.
type OrderService struct {
	db         *gorm.DB
	stock      StockAdjuster
	outbox     *OutboxStore
	notifier   Notifier
	cache      ProductCache
	Multibanco MultibancoGenerator
}

// NewOrderService creates an OrderService. notifier and cache may be nil.
func NewOrderService(db *gorm.DB, outbox *OutboxStore, notifier Notifier, cache ProductCache) *OrderService {
	return &OrderService{
		db:         db,
		outbox:     outbox,
		notifier:   notifier,
		cache:      cache,
		Multibanco: RandomMultibanco{},
	}
}

// SetNotifier replaces the post-commit notifier
func (s *OrderService) SetNotifier(n Notifier) {
	s.notifier = n
}

// PlaceOrder persists the order aggregate, takes the items out of stock and
// enqueues the confirmation email, all in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, in PlaceOrderInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, utils.OrderCreationFailedError(tx.Error)
	}

	order, err := s.createAggregate(tx, userID, in)
	if err != nil {
		tx.Rollback()
		utils.LogError("Order creation for user %d rolled back: %v", userID, err)
		if utils.IsKind(err, utils.KindConflict) || utils.IsKind(err, utils.KindNotFound) {
			return nil, err
		}
		return nil, utils.OrderCreationFailedError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.OrderCreationFailedError(err)
	}

	utils.LogInfo("Order %d placed by user %d (%s, total %s)", order.ID, userID, in.Payment.Method, order.TotalAmount.StringFixed(2))
	s.afterCommit(ctx, order)
	return order, nil
}

func (s *OrderService) createAggregate(tx *gorm.DB, userID uint, in PlaceOrderInput) (*models.Order, error) {
	var user models.User
	if err := tx.Select("id", "email").First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if in.CouponID != nil {
		var coupon models.Coupon
		if err := tx.Select("id").First(&coupon, *in.CouponID).Error; err != nil {
			if isNotFound(err) {
				return nil, utils.NotFoundError("Coupon not found", err)
			}
			return nil, fmt.Errorf("load coupon %d: %w", *in.CouponID, err)
		}
	}

	order := models.Order{
		UserID:         userID,
		Status:         models.OrderStatusPending,
		TotalAmount:    in.Payment.Amount.Round(2),
		CouponID:       in.CouponID,
		DiscountAmount: in.DiscountAmount,
	}
	if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	items := make([]models.OrderItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.Round(2),
		}
	}
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	shipping := models.Shipping{
		OrderID:    order.ID,
		Method:     in.Shipping.Method,
		Status:     models.OrderStatusPending,
		FullName:   strings.TrimSpace(in.Shipping.FullName),
		Address:    strings.TrimSpace(in.Shipping.Address),
		City:       strings.TrimSpace(in.Shipping.City),
		PostalCode: strings.TrimSpace(in.Shipping.PostalCode),
		Country:    strings.TrimSpace(in.Shipping.Country),
		Phone:      strings.TrimSpace(in.Shipping.Phone),
		Cost:       in.Shipping.Cost.Round(2),
	}
	if err := tx.Create(&shipping).Error; err != nil {
		return nil, fmt.Errorf("insert shipping: %w", err)
	}

	payment, err := buildPayment(order.ID, in.Payment, s.Multibanco)
	if err != nil {
		return nil, err
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	for _, item := range in.Items {
		if err := s.stock.Decrement(tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.outbox.Enqueue(tx, models.NotificationOrderConfirmation, order.ID, user.Email); err != nil {
		return nil, fmt.Errorf("enqueue confirmation: %w", err)
	}

	return loadOrderGraph(tx, order.ID)
}

// UpdateStatus overwrites the order status with any known status and mirrors
// it on the shipping record when the shipping status has an equivalent.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, utils.ValidationFailed("Invalid order status: " + status)
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error; err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if shippingStatus, ok := models.ShippingStatusFor(status); ok {
			if err := tx.Model(&models.Shipping{}).Where("order_id = ?", orderID).
				Update("status", shippingStatus).Error; err != nil {
				return fmt.Errorf("update shipping status: %w", err)
			}
		}

		if err := s.enqueueFor(tx, models.NotificationOrderStatusUpdate, current); err != nil {
			return err
		}

		order, err = loadOrderGraph(tx, orderID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("Failed to update order status", err)
	}

	utils.LogInfo("Order %d status set to %s", orderID, status)
	s.afterCommit(ctx, nil)
	return order, nil
}

// AttachTracking stores the carrier tracking code and marks the order and
// its shipping record SHIPPED in one transaction.
func (s *OrderService) AttachTracking(ctx context.Context, orderID uint, trackingCode string) (*models.Order, error) {
	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return nil, utils.ValidationFailed("Tracking code is required")
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Shipping{}).Where("order_id = ?", orderID).Updates(map[string]interface{}{
			"tracking_code": trackingCode,
			"status":        models.OrderStatusShipped,
		})
		if res.Error != nil {
			return fmt.Errorf("update shipping: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.NotFoundError("Shipping record not found", nil)
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
			Update("status", models.OrderStatusShipped).Error; err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		if err := s.enqueueFor(tx, models.NotificationOrderShipped, current); err != nil {
			return err
		}

		order, err = loadOrderGraph(tx, orderID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("Failed to attach tracking code", err)
	}

	utils.LogInfo("Tracking code attached to order %d", orderID)
	s.afterCommit(ctx, nil)
	return order, nil
}

// GetOrder returns the order graph to its owner or an admin
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, requester utils.Identity) (*models.Order, error) {
	order, err := s.LoadOrderGraph(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requester.UserID && !requester.IsAdmin() {
		utils.LogInfo("User %d denied access to order %d", requester.UserID, orderID)
		return nil, utils.ForbiddenError("You are not allowed to access this order")
	}
	return order, nil
}

// GetTracking returns tracking details once a tracking code was attached
func (s *OrderService) GetTracking(ctx context.Context, orderID uint, requester utils.Identity) (*TrackingInfo, error) {
	order, err := s.GetOrder(ctx, orderID, requester)
	if err != nil {
		return nil, err
	}
	if order.Shipping == nil || order.Shipping.TrackingCode == nil || *order.Shipping.TrackingCode == "" {
		return nil, utils.NotFoundError("Tracking information not available for this order", nil)
	}
	return &TrackingInfo{
		OrderID:        order.ID,
		Status:         order.Status,
		ShippingStatus: order.Shipping.Status,
		Method:         order.Shipping.Method,
		TrackingCode:   *order.Shipping.TrackingCode,
		UpdatedAt:      order.Shipping.UpdatedAt,
	}, nil
}

// ListUserOrders returns a user's orders, newest first, with each line marked
// when the user already reviewed that product for that order.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uint) ([]UserOrder, error) {
	db := s.db.WithContext(ctx)

	var orders []models.Order
	if err := preloadGraph(db).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch orders", err)
	}

	var reviews []models.Review
	if err := db.Select("order_id", "product_id").Where("user_id = ?", userID).Find(&reviews).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch reviews", err)
	}
	reviewed := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		reviewed[reviewKey(r.OrderID, r.ProductID)] = true
	}

	result := make([]UserOrder, len(orders))
	for i, o := range orders {
		items := make([]UserOrderItem, len(o.Items))
		for j, item := range o.Items {
			items[j] = UserOrderItem{OrderItem: item, Reviewed: reviewed[reviewKey(o.ID, item.ProductID)]}
		}
		result[i] = UserOrder{Order: o, Items: items}
	}
	return result, nil
}

func reviewKey(orderID, productID uint) string {
	return fmt.Sprintf("%d-%d", orderID, productID)
}

// ListOrders is the admin order listing
func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter, p *utils.Pagination) ([]models.Order, error) {
	if filter.Status != "" && !models.IsValidOrderStatus(filter.Status) {
		return nil, utils.ValidationFailed("Invalid order status: " + filter.Status)
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, utils.InternalError("Failed to count orders", err)
	}
	p.SetTotal(total)

	var orders []models.Order
	if err := preloadGraph(query).Preload("User").
		Order("created_at DESC, id DESC").
		Scopes(p.Scope).
		Find(&orders).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch orders", err)
	}
	return orders, nil
}

// DeleteOrder removes the whole aggregate. Stock is not returned.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOrder(tx, orderID); err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.CouponRedemption{},
			&models.OrderItem{},
			&models.Shipping{},
			&models.Payment{},
		} {
			if err := tx.Where("order_id = ?", orderID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", model, err)
			}
		}
		if err := tx.Where("order_id = ? AND status IN ?", orderID,
			[]string{models.OutboxStatusPending, models.OutboxStatusPublished}).
			Delete(&models.NotificationOutbox{}).Error; err != nil {
			return fmt.Errorf("delete pending notifications: %w", err)
		}
		return tx.Delete(&models.Order{}, orderID).Error
	})
	if err != nil {
		return wrapInternal("Failed to delete order", err)
	}
	utils.LogInfo("Order %d deleted", orderID)
	return nil
}

// LoadOrderGraph reads an order with its items, products, shipping, payment,
// coupon and user.
func (s *OrderService) LoadOrderGraph(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := loadOrderGraph(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, wrapInternal("Failed to fetch order", err)
	}
	return order, nil
}

func preloadGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("Shipping").
		Preload("Payment")
}

func loadOrderGraph(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := preloadGraph(db).Preload("User").Preload("Coupon").First(&order, orderID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Order not found", err)
		}
		return nil, err
	}
	return &order, nil
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Order not found", err)
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) enqueueFor(tx *gorm.DB, kind string, order *models.Order) error {
	var user models.User
	if err := tx.Select("id", "email").First(&user, order.UserID).Error; err != nil {
		return fmt.Errorf("load order owner: %w", err)
	}
	if err := s.outbox.Enqueue(tx, kind, order.ID, user.Email); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

// afterCommit runs the best-effort post-commit hooks
func (s *OrderService) afterCommit(ctx context.Context, placed *models.Order) {
	if s.notifier != nil {
		s.notifier.Wake()
	}
	if s.cache != nil && placed != nil {
		ids := make([]uint, 0, len(placed.Items))
		for _, item := range placed.Items {
			ids = append(ids, item.ProductID)
		}
		s.cache.InvalidateProducts(ctx, ids...)
	}
}

// wrapInternal keeps AppErrors as they are and wraps anything else
func wrapInternal(message string, err error) error {
	if utils.GetAppError(err) != nil {
		return err
	}
	return utils.InternalError(message, err)
}
