package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gamershop/gamershop/config"
	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB connects to TEST_DATABASE_URL and resets every table. Tests that
// need it are skipped when the variable is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	require.NoError(t, db.Exec(`TRUNCATE TABLE notification_outbox, coupon_redemptions, reviews, payments,
		shippings, order_items, orders, coupons, product_images, products, brands, categories, users
		RESTART IDENTITY CASCADE`).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", Role: models.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: dec("19.99"), Stock: stock, IsActive: true}
	require.NoError(t, db.Create(product).Error)
	return product
}

func pickupOrder(items ...OrderItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		Items:    items,
		Shipping: ShippingInput{Method: models.ShippingMethodPickup},
		Payment:  PaymentInput{Method: models.PaymentMethodPayPal, Amount: dec("19.99")},
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestPlaceOrderPersistsAggregate(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "ana")
	product := seedProduct(t, db, "Controller", 3)
	orders := NewOrderService(db, NewOutboxStore(db), nil, nil)

	order, err := orders.PlaceOrder(context.Background(), user.ID,
		pickupOrder(OrderItemInput{ProductID: product.ID, Quantity: 2, Price: dec("19.99")}))
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	require.NotNil(t, order.Shipping)
	require.NotNil(t, order.Payment)

	var stored models.Product
	require.NoError(t, db.First(&stored, product.ID).Error)
	assert.Equal(t, 1, stored.Stock)

	var outbox []models.NotificationOutbox
	require.NoError(t, db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	assert.Equal(t, models.NotificationOrderConfirmation, outbox[0].Kind)
	assert.Equal(t, order.ID, outbox[0].OrderID)
	assert.Equal(t, "ana@example.com", outbox[0].Recipient)
	assert.Equal(t, models.OutboxStatusPending, outbox[0].Status)
}

func TestPlaceOrderRollsBackOnInsufficientStock(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "bruno")
	plenty := seedProduct(t, db, "Headset", 10)
	scarce := seedProduct(t, db, "Limited Edition", 1)
	orders := NewOrderService(db, NewOutboxStore(db), nil, nil)

	_, err := orders.PlaceOrder(context.Background(), user.ID, pickupOrder(
		OrderItemInput{ProductID: plenty.ID, Quantity: 4, Price: dec("10")},
		OrderItemInput{ProductID: scarce.ID, Quantity: 2, Price: dec("10")},
	))
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stored models.Product
	require.NoError(t, db.First(&stored, plenty.ID).Error)
	assert.Equal(t, 10, stored.Stock)

	assert.Zero(t, count(t, db, &models.Order{}))
	assert.Zero(t, count(t, db, &models.OrderItem{}))
	assert.Zero(t, count(t, db, &models.Shipping{}))
	assert.Zero(t, count(t, db, &models.Payment{}))
	assert.Zero(t, count(t, db, &models.NotificationOutbox{}))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, "Console", 5)
	orders := NewOrderService(db, NewOutboxStore(db), nil, nil)

	const buyers = 12
	users := make([]*models.User, buyers)
	for i := range users {
		users[i] = seedUser(t, db, fmt.Sprintf("buyer%02d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		placed    int
		conflicts int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := orders.PlaceOrder(context.Background(), userID,
				pickupOrder(OrderItemInput{ProductID: product.ID, Quantity: 1, Price: dec("19.99")}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case utils.IsKind(err, utils.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, buyers-5, conflicts)

	var stored models.Product
	require.NoError(t, db.First(&stored, product.ID).Error)
	assert.Zero(t, stored.Stock)
	assert.Equal(t, int64(5), count(t, db, &models.Order{}))
}

func TestOrderOwnership(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")
	product := seedProduct(t, db, "Keyboard", 2)
	orders := NewOrderService(db, NewOutboxStore(db), nil, nil)
	ctx := context.Background()

	order, err := orders.PlaceOrder(ctx, owner.ID,
		pickupOrder(OrderItemInput{ProductID: product.ID, Quantity: 1, Price: dec("19.99")}))
	require.NoError(t, err)

	_, err = orders.GetOrder(ctx, order.ID, utils.Identity{UserID: other.ID, Role: models.RoleUser})
	assert.True(t, utils.IsKind(err, utils.KindForbidden))

	got, err := orders.GetOrder(ctx, order.ID, utils.Identity{UserID: other.ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = orders.GetOrder(ctx, order.ID+100, utils.Identity{UserID: owner.ID, Role: models.RoleUser})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func seedCoupon(t *testing.T, db *gorm.DB, code string, maxUses *int) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Code:      code,
		Type:      models.CouponTypeFixed,
		Value:     dec("5"),
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
		MaxUses:   maxUses,
		IsActive:  true,
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestApplyCouponTwiceConflicts(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "carla")
	product := seedProduct(t, db, "Mouse", 5)
	seedCoupon(t, db, "TWICE", nil)
	orders := NewOrderService(db, NewOutboxStore(db), nil, nil)
	coupons := NewCouponService(db, nil)
	ctx := context.Background()
	requester := utils.Identity{UserID: user.ID, Role: models.RoleUser}

	order, err := orders.PlaceOrder(ctx, user.ID,
		pickupOrder(OrderItemInput{ProductID: product.ID, Quantity: 1, Price: dec("19.99")}))
	require.NoError(t, err)

	result, err := coupons.ApplyCoupon(ctx, "twice", order.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Coupon.UsedCount)

	_, err = coupons.ApplyCoupon(ctx, "TWICE", order.ID, requester)
	appErr := utils.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
	assert.Equal(t, "Coupon already applied to this order", appErr.Message)

	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "TWICE").First(&stored).Error)
	assert.Equal(t, 1, stored.UsedCount)
	assert.Equal(t, int64(1), count(t, db, &models.CouponRedemption{}))

	_, err = coupons.ApplyCoupon(ctx, "TWICE", order.ID, utils.Identity{UserID: user.ID + 1, Role: models.RoleUser})
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestConcurrentRedemptionsRespectMaxUses(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, "Gamepad", 20)
	seedCoupon(t, db, "FIRST3", intPtr(3))
	orders := NewOrderService(db, NewOutboxStore(db), nil, nil)
	coupons := NewCouponService(db, nil)
	ctx := context.Background()

	const attempts = 8
	type placed struct {
		orderID uint
		userID  uint
	}
	placedOrders := make([]placed, attempts)
	for i := range placedOrders {
		user := seedUser(t, db, fmt.Sprintf("shopper%02d", i))
		order, err := orders.PlaceOrder(ctx, user.ID,
			pickupOrder(OrderItemInput{ProductID: product.ID, Quantity: 1, Price: dec("19.99")}))
		require.NoError(t, err)
		placedOrders[i] = placed{orderID: order.ID, userID: user.ID}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for _, p := range placedOrders {
		wg.Add(1)
		go func(p placed) {
			defer wg.Done()
			_, err := coupons.ApplyCoupon(ctx, "FIRST3", p.orderID, utils.Identity{UserID: p.userID, Role: models.RoleUser})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				applied++
				return
			}
			assert.True(t, utils.IsKind(err, utils.KindValidation), "unexpected error: %v", err)
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 3, applied)

	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "FIRST3").First(&stored).Error)
	assert.Equal(t, 3, stored.UsedCount)
	assert.False(t, stored.IsActive)
	assert.Equal(t, int64(3), count(t, db, &models.CouponRedemption{}))
	assert.Equal(t, int64(3), count(t, db.Where("coupon_id IS NOT NULL"), &models.Order{}))
}
