package routes

import (
	"github.com/gin-gonic/gin"
)

// initAdminRoutes mounts the admin-only routes
func initAdminRoutes(router *gin.RouterGroup, h Handlers, auth, admin gin.HandlerFunc) {
	adm := router.Group("")
	adm.Use(auth, admin)
	{
		// Product management
		adm.POST("/products", h.Products.CreateProduct)
		adm.PUT("/products/:id", h.Products.UpdateProduct)
		adm.DELETE("/products/:id", h.Products.DeleteProduct)
		adm.POST("/products/:id/images", h.Products.UploadProductImage)

		// Category and brand management
		adm.POST("/categories", h.Taxonomy.CreateCategory)
		adm.PUT("/categories/:id", h.Taxonomy.UpdateCategory)
		adm.DELETE("/categories/:id", h.Taxonomy.DeleteCategory)
		adm.POST("/brands", h.Taxonomy.CreateBrand)
		adm.PUT("/brands/:id", h.Taxonomy.UpdateBrand)
		adm.DELETE("/brands/:id", h.Taxonomy.DeleteBrand)

		adm.DELETE("/reviews/:id", h.Reviews.DeleteReview)

		// Order management
		adm.GET("/orders", h.Orders.ListOrders)
		adm.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
		adm.POST("/orders/:id/tracking", h.Orders.AttachTracking)
		adm.DELETE("/orders/:id", h.Orders.DeleteOrder)

		// Coupon management
		adm.POST("/coupons", h.Coupons.CreateCoupon)
		adm.GET("/coupons", h.Coupons.ListCoupons)
		adm.GET("/coupons/:id", h.Coupons.GetCoupon)
		adm.PUT("/coupons/:id", h.Coupons.UpdateCoupon)

		// Dashboard
		dashboard := adm.Group("/dashboard")
		dashboard.GET("/stats", h.Dashboard.GetStats)
		dashboard.GET("/sales", h.Dashboard.GetSales)
		dashboard.GET("/top-products", h.Dashboard.GetTopProducts)
		dashboard.GET("/coupons", h.Dashboard.GetCouponUsage)
		dashboard.GET("/export", h.Dashboard.ExportSales)
	}
}
