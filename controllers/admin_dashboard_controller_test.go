package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var dashboardNow = time.Date(2024, 4, 10, 15, 0, 0, 0, time.UTC)

func setupDashboardRouter(analytics Analytics) *gin.Engine {
	h := NewDashboardController(analytics)
	h.Now = func() time.Time { return dashboardNow }

	r := utils.NewTestRouter()
	api := r.Group("/api/dashboard", as(admin))
	api.GET("/stats", h.GetStats)
	api.GET("/sales", h.GetSales)
	api.GET("/top-products", h.GetTopProducts)
	api.GET("/coupons", h.GetCouponUsage)
	api.GET("/export", h.ExportSales)
	return r
}

func TestGetStats(t *testing.T) {
	analytics := new(MockAnalytics)
	analytics.On("Stats", mock.Anything).Return(&services.DashboardStats{
		TotalOrders: 12, PendingOrders: 2, TotalRevenue: decimal.RequireFromString("1234.50"),
	}, nil).Once()

	resp := utils.MakeTestRequest(t, setupDashboardRouter(analytics), utils.TestRequest{Method: http.MethodGet, Path: "/api/dashboard/stats"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", resp.Body["status"])
	data := resp.Body["data"].(map[string]interface{})
	assert.Equal(t, float64(12), data["totalOrders"])
	assert.Equal(t, 1234.5, data["totalRevenue"])
	analytics.AssertExpectations(t)
}

func TestGetSales(t *testing.T) {
	t.Run("period", func(t *testing.T) {
		analytics := new(MockAnalytics)
		analytics.On("Sales", mock.Anything, services.SalesRange{From: dashboardNow.AddDate(-1, 0, 0), To: dashboardNow}, "month").
			Return([]services.SalesPoint{}, nil).Once()

		resp := utils.MakeTestRequest(t, setupDashboardRouter(analytics), utils.TestRequest{
			Method: http.MethodGet, Path: "/api/dashboard/sales?period=year",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "month", resp.Body["data"].(map[string]interface{})["granularity"])
		analytics.AssertExpectations(t)
	})

	t.Run("explicit dates include the end day", func(t *testing.T) {
		from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 3, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		analytics := new(MockAnalytics)
		analytics.On("Sales", mock.Anything, services.SalesRange{From: from, To: to}, "day").
			Return([]services.SalesPoint{{Period: from, Orders: 3, Revenue: decimal.NewFromInt(90)}}, nil).Once()

		resp := utils.MakeTestRequest(t, setupDashboardRouter(analytics), utils.TestRequest{
			Method: http.MethodGet, Path: "/api/dashboard/sales?startDate=2024-03-01&endDate=2024-03-31",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		points := resp.Body["data"].(map[string]interface{})["points"].([]interface{})
		assert.Len(t, points, 1)
		analytics.AssertExpectations(t)
	})

	tests := []struct {
		query   string
		message string
	}{
		{"period=decade", "Period must be day, week, month or year"},
		{"startDate=2024-13-01&endDate=2024-12-31", "Invalid startDate, expected YYYY-MM-DD"},
		{"startDate=2024-03-01", "Invalid endDate, expected YYYY-MM-DD"},
		{"startDate=2024-03-10&endDate=2024-03-01", "endDate must not be before startDate"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := utils.MakeTestRequest(t, setupDashboardRouter(new(MockAnalytics)), utils.TestRequest{
				Method: http.MethodGet, Path: "/api/dashboard/sales?" + tt.query,
			})
			utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"error": tt.message})
		})
	}
}

func TestGetTopProductsAndCoupons(t *testing.T) {
	analytics := new(MockAnalytics)
	analytics.On("TopProducts", mock.Anything, 10).Return([]services.TopProduct{{ProductID: 1, Name: "DualSense", Units: 9}}, nil).Once()
	analytics.On("TopProducts", mock.Anything, 3).Return([]services.TopProduct{}, nil).Once()
	analytics.On("CouponUsage", mock.Anything).Return(nil, utils.InternalError("Failed to fetch coupon usage", assert.AnError)).Once()
	router := setupDashboardRouter(analytics)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/dashboard/top-products"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Body["data"], 1)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/dashboard/top-products?limit=3"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/dashboard/coupons"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch coupon usage", resp.Body["error"])

	analytics.AssertExpectations(t)
}

func TestExportSales(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	analytics := new(MockAnalytics)
	analytics.On("SalesOrders", mock.Anything, services.SalesRange{From: from, To: to}).Return([]models.Order{
		{ID: 1, Status: models.OrderStatusPaid, TotalAmount: decimal.NewFromInt(50), CreatedAt: from.Add(time.Hour)},
	}, nil).Once()

	resp := utils.MakeTestRequest(t, setupDashboardRouter(analytics), utils.TestRequest{
		Method: http.MethodGet, Path: "/api/dashboard/export?startDate=2024-01-01&endDate=2024-01-31",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=sales_report_20240101_20240131.xlsx", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "PK", string(resp.Raw[:2]))
	analytics.AssertExpectations(t)
}
