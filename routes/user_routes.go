package routes

import (
	"github.com/gin-gonic/gin"
)

// initPublicRoutes mounts the routes that need no token
func initPublicRoutes(router *gin.RouterGroup, h Handlers) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/google/login", h.Auth.GoogleLogin)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
	}

	// Catalog
	router.GET("/products", h.Products.ListProducts)
	router.GET("/products/:id", h.Products.GetProduct)
	router.GET("/products/:id/reviews", h.Reviews.ListProductReviews)
	router.GET("/categories", h.Taxonomy.ListCategories)
	router.GET("/brands", h.Taxonomy.ListBrands)
}

// initUserRoutes mounts the routes for any logged in user
func initUserRoutes(router *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	user := router.Group("")
	user.Use(auth)
	{
		user.GET("/auth/me", h.Auth.Me)

		// Orders
		user.POST("/orders", h.Orders.PlaceOrder)
		user.GET("/orders/user", h.Orders.ListMyOrders)
		user.GET("/orders/:id", h.Orders.GetOrder)
		user.GET("/orders/:id/tracking", h.Orders.GetTracking)
		user.GET("/orders/:id/invoice", h.Orders.DownloadInvoice)

		// Coupons
		user.POST("/coupons/validate", h.Coupons.ValidateCoupon)
		user.POST("/coupons/apply", h.Coupons.ApplyCoupon)

		// Reviews
		user.POST("/reviews", h.Reviews.CreateReview)
	}
}
