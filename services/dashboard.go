package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// LowStockThreshold marks products that need restocking
const LowStockThreshold = 5

// DashboardStats are the admin headline numbers
type DashboardStats struct {
	TotalOrders    int64           `json:"totalOrders"`
	PendingOrders  int64           `json:"pendingOrders"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalDiscounts decimal.Decimal `json:"totalDiscounts"`
	TotalUsers     int64           `json:"totalUsers"`
	TotalProducts  int64           `json:"totalProducts"`
	LowStock       int64           `json:"lowStockProducts"`
	ActiveCoupons  int64           `json:"activeCoupons"`
}

// SalesPoint is the revenue of one period bucket
type SalesPoint struct {
	Period  time.Time       `json:"period"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopProduct is a best seller by units
type TopProduct struct {
	ProductID uint            `json:"productId"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CouponUsage summarises how a coupon performed
type CouponUsage struct {
	CouponID  uint            `json:"couponId"`
	Code      string          `json:"code"`
	UsedCount int             `json:"usedCount"`
	MaxUses   *int            `json:"maxUses"`
	IsActive  bool            `json:"isActive"`
	Orders    int64           `json:"orders"`
	Discounts decimal.Decimal `json:"discounts"`
}

// SalesRange is a closed time range for reports
type SalesRange struct {
	From time.Time
	To   time.Time
}

// ParseSalesPeriod turns a day, week, month or year period into a range ending now
func ParseSalesPeriod(period string, now time.Time) (SalesRange, string, error) {
	end := now
	switch period {
	case "", "week":
		return SalesRange{From: end.AddDate(0, 0, -7), To: end}, "day", nil
	case "day":
		return SalesRange{From: end.Add(-24 * time.Hour), To: end}, "hour", nil
	case "month":
		return SalesRange{From: end.AddDate(0, -1, 0), To: end}, "day", nil
	case "year":
		return SalesRange{From: end.AddDate(-1, 0, 0), To: end}, "month", nil
	}
	return SalesRange{}, "", utils.ValidationFailed("Period must be day, week, month or year")
}

// DashboardService computes admin analytics
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a DashboardService
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// excludedFromRevenue keeps cancelled orders out of revenue figures
var excludedFromRevenue = []string{models.OrderStatusCancelled}

// Stats returns the headline numbers
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalOrders, db.Model(&models.Order{})},
		{&stats.PendingOrders, db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending)},
		{&stats.TotalUsers, db.Model(&models.User{}).Where("role = ?", models.RoleUser)},
		{&stats.TotalProducts, db.Model(&models.Product{}).Where("is_active = ?", true)},
		{&stats.LowStock, db.Model(&models.Product{}).Where("is_active = ? AND stock <= ?", true, LowStockThreshold)},
		{&stats.ActiveCoupons, db.Model(&models.Coupon{}).Where("is_active = ?", true)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, utils.InternalError("Failed to compute dashboard stats", err)
		}
	}

	var sums struct {
		Revenue   decimal.Decimal
		Discounts decimal.Decimal
	}
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS revenue, COALESCE(SUM(discount_amount), 0) AS discounts").
		Where("status NOT IN ?", excludedFromRevenue).
		Scan(&sums).Error
	if err != nil {
		return nil, utils.InternalError("Failed to compute revenue", err)
	}
	stats.TotalRevenue = sums.Revenue
	stats.TotalDiscounts = sums.Discounts
	return stats, nil
}

// Sales buckets revenue by the given granularity (hour, day or month)
func (s *DashboardService) Sales(ctx context.Context, r SalesRange, granularity string) ([]SalesPoint, error) {
	switch granularity {
	case "hour", "day", "month":
	default:
		return nil, utils.ValidationFailed("Invalid granularity: " + granularity)
	}

	var points []SalesPoint
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("date_trunc(?, created_at) AS period, COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue", granularity).
		Where("created_at BETWEEN ? AND ? AND status NOT IN ?", r.From, r.To, excludedFromRevenue).
		Group("period").Order("period").
		Scan(&points).Error
	if err != nil {
		return nil, utils.InternalError("Failed to compute sales", err)
	}
	return points, nil
}

// TopProducts returns the best sellers by units sold
func (s *DashboardService) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = 10
	}

	var top []TopProduct
	err := s.db.WithContext(ctx).Table("order_items").
		Select("order_items.product_id, products.name, SUM(order_items.quantity) AS units, SUM(order_items.quantity * order_items.price) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.status NOT IN ?", excludedFromRevenue).
		Group("order_items.product_id, products.name").
		Order("units DESC, order_items.product_id").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		return nil, utils.InternalError("Failed to compute top products", err)
	}
	return top, nil
}

// CouponUsage reports redemptions and discounts per coupon
func (s *DashboardService) CouponUsage(ctx context.Context) ([]CouponUsage, error) {
	var usage []CouponUsage
	err := s.db.WithContext(ctx).Table("coupons").
		Select("coupons.id AS coupon_id, coupons.code, coupons.used_count, coupons.max_uses, coupons.is_active, " +
			"COUNT(orders.id) AS orders, COALESCE(SUM(orders.discount_amount), 0) AS discounts").
		Joins("LEFT JOIN orders ON orders.coupon_id = coupons.id").
		Group("coupons.id").
		Order("coupons.used_count DESC, coupons.id").
		Scan(&usage).Error
	if err != nil {
		return nil, utils.InternalError("Failed to compute coupon usage", err)
	}
	return usage, nil
}

// SalesOrders returns the orders of a range with their owner and payment
func (s *DashboardService) SalesOrders(ctx context.Context, r SalesRange) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("User").Preload("Payment").Preload("Items").
		Where("created_at BETWEEN ? AND ?", r.From, r.To).
		Order("created_at, id").
		Find(&orders).Error
	if err != nil {
		return nil, utils.InternalError("Failed to fetch orders", err)
	}
	return orders, nil
}

// WriteSalesWorkbook renders orders as an XLSX sales report
func WriteSalesWorkbook(w io.Writer, r SalesRange, orders []models.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales Report")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	title := sheet.AddRow().AddCell()
	title.SetString("GamerShop - Sales Report")
	title.SetStyle(bold)
	sheet.AddRow().AddCell().SetString(fmt.Sprintf("Period: %s to %s", r.From.Format("2006-01-02"), r.To.Format("2006-01-02")))
	sheet.AddRow()

	header := sheet.AddRow()
	for _, h := range []string{"Order ID", "Date", "Customer", "Items", "Status", "Payment", "Discount", "Total"} {
		cell := header.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	revenue := decimal.Zero
	discounts := decimal.Zero
	counted := 0
	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(o.ID))
		row.AddCell().SetString(o.CreatedAt.Format("2006-01-02 15:04"))
		customer := ""
		if o.User != nil {
			customer = o.User.Email
		}
		row.AddCell().SetString(customer)
		row.AddCell().SetInt(len(o.Items))
		row.AddCell().SetString(o.Status)
		method := ""
		if o.Payment != nil {
			method = o.Payment.Method
		}
		row.AddCell().SetString(method)
		discount := decimal.Zero
		if o.DiscountAmount.Valid {
			discount = o.DiscountAmount.Decimal
		}
		row.AddCell().SetFloat(discount.InexactFloat64())
		row.AddCell().SetFloat(o.TotalAmount.InexactFloat64())

		if o.Status != models.OrderStatusCancelled {
			counted++
			revenue = revenue.Add(o.TotalAmount)
			discounts = discounts.Add(discount)
		}
	}

	sheet.AddRow()
	summary := sheet.AddRow().AddCell()
	summary.SetString("Summary")
	summary.SetStyle(bold)
	for _, line := range [][2]string{
		{"Orders (excluding cancelled)", fmt.Sprint(counted)},
		{"Revenue", revenue.StringFixed(2)},
		{"Discounts", discounts.StringFixed(2)},
	} {
		row := sheet.AddRow()
		row.AddCell().SetString(line[0])
		row.AddCell().SetString(line[1])
	}

	return file.Write(w)
}
