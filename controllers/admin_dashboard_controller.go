package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Analytics is the dashboard side of the services layer
type Analytics interface {
	Stats(ctx context.Context) (*services.DashboardStats, error)
	Sales(ctx context.Context, r services.SalesRange, granularity string) ([]services.SalesPoint, error)
	TopProducts(ctx context.Context, limit int) ([]services.TopProduct, error)
	CouponUsage(ctx context.Context) ([]services.CouponUsage, error)
	SalesOrders(ctx context.Context, r services.SalesRange) ([]models.Order, error)
}

// DashboardController serves the admin analytics endpoints
type DashboardController struct {
	Analytics Analytics
	Now       func() time.Time
}

// NewDashboardController creates a DashboardController
func NewDashboardController(a Analytics) *DashboardController {
	return &DashboardController{Analytics: a, Now: time.Now}
}

// salesRange reads either ?startDate&endDate (YYYY-MM-DD) or ?period
func (h *DashboardController) salesRange(c *gin.Context) (services.SalesRange, string, error) {
	start, end := c.Query("startDate"), c.Query("endDate")
	if start == "" && end == "" {
		return services.ParseSalesPeriod(c.Query("period"), h.Now())
	}

	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return services.SalesRange{}, "", utils.ValidationFailed("Invalid startDate, expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return services.SalesRange{}, "", utils.ValidationFailed("Invalid endDate, expected YYYY-MM-DD")
	}
	to = to.Add(24*time.Hour - time.Nanosecond)
	if to.Before(from) {
		return services.SalesRange{}, "", utils.ValidationFailed("endDate must not be before startDate")
	}

	granularity := "day"
	if to.Sub(from) > 92*24*time.Hour {
		granularity = "month"
	}
	return services.SalesRange{From: from, To: to}, granularity, nil
}

// GetStats handles GET /api/dashboard/stats
func (h *DashboardController) GetStats(c *gin.Context) {
	stats, err := h.Analytics.Stats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Dashboard stats retrieved successfully", stats)
}

// GetSales handles GET /api/dashboard/sales
func (h *DashboardController) GetSales(c *gin.Context) {
	r, granularity, err := h.salesRange(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	points, err := h.Analytics.Sales(c.Request.Context(), r, granularity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Sales retrieved successfully", gin.H{
		"from":        r.From,
		"to":          r.To,
		"granularity": granularity,
		"points":      points,
	})
}

// GetTopProducts handles GET /api/dashboard/top-products
func (h *DashboardController) GetTopProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	top, err := h.Analytics.TopProducts(c.Request.Context(), limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Top products retrieved successfully", top)
}

// GetCouponUsage handles GET /api/dashboard/coupons
func (h *DashboardController) GetCouponUsage(c *gin.Context) {
	usage, err := h.Analytics.CouponUsage(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Coupon usage retrieved successfully", usage)
}

// ExportSales handles GET /api/dashboard/export and answers an XLSX workbook
func (h *DashboardController) ExportSales(c *gin.Context) {
	r, _, err := h.salesRange(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	orders, err := h.Analytics.SalesOrders(c.Request.Context(), r)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteSalesWorkbook(&buf, r, orders); err != nil {
		utils.InternalServerError(c, "Failed to generate sales report", err)
		return
	}
	utils.LogInfo("Sales report exported: %d orders", len(orders))

	filename := fmt.Sprintf("sales_report_%s_%s.xlsx", r.From.Format("20060102"), r.To.Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
