package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/middleware"
)

// RegisterAPIRoutes registers the JSON API under /api.
//
// Product listing and detail, registration and login are public. Every
// other route requires a bearer token; admin routes also require the admin
// role.
func RegisterAPIRoutes(e *echo.Echo, deps APIDeps) {
	g := e.Group("/api", middleware.RateLimit(deps.RateLimit))

	authn := middleware.Authenticate(deps.Tokens)
	admin := middleware.RequireAdmin()
	strict := middleware.RateLimit(deps.AuthRateLimit)

	// Cart
	cart := g.Group("/cart", authn)
	cart.GET("", deps.CartHandler.Get)
	cart.POST("", deps.CartHandler.Add)
	cart.DELETE("", deps.CartHandler.Clear)
	cart.PUT("/:productId", deps.CartHandler.Update)
	cart.DELETE("/:productId", deps.CartHandler.Remove)

	// Orders
	orders := g.Group("/orders", authn)
	orders.POST("", deps.OrderHandler.Create)
	orders.GET("", deps.OrderHandler.List, admin)
	orders.GET("/myorders", deps.OrderHandler.Mine)
	orders.GET("/:id", deps.OrderHandler.Get)
	orders.PUT("/:id/pay", deps.OrderHandler.MarkPaid)
	orders.PUT("/:id/deliver", deps.OrderHandler.MarkDelivered, admin)
	orders.PUT("/:id/status", deps.OrderHandler.SetStatus, admin)
	orders.PUT("/:id/assign", deps.OrderHandler.Assign, admin)

	// Payments
	payment := g.Group("/payment", authn)
	payment.POST("/initiate", deps.PaymentHandler.Initiate)
	payment.POST("/verify", deps.PaymentHandler.Verify)
	payment.GET("/my-payments", deps.PaymentHandler.Mine)
	payment.GET("/status/:transactionId", deps.PaymentHandler.Status)
	payment.GET("", deps.PaymentHandler.List, admin)
	payment.GET("/:id", deps.PaymentHandler.Get)
	payment.PUT("/:id/status", deps.PaymentHandler.UpdateStatus, admin)

	// Products and reviews
	products := g.Group("/products")
	products.GET("", deps.ProductHandler.List)
	products.GET("/:id", deps.ProductHandler.Get)
	products.POST("", deps.ProductHandler.Create, authn, admin)
	products.PUT("/:id", deps.ProductHandler.Update, authn, admin)
	products.DELETE("/:id", deps.ProductHandler.Delete, authn, admin)
	products.POST("/:id/reviews", deps.ProductHandler.AddReview, authn)
	products.PUT("/:id/reviews/:reviewId", deps.ProductHandler.UpdateReview, authn)
	products.DELETE("/:id/reviews/:reviewId", deps.ProductHandler.DeleteReview, authn)

	// Users
	users := g.Group("/users")
	users.POST("", deps.UserHandler.Register, strict)
	users.POST("/login", deps.UserHandler.Login, strict)
	users.POST("/logout", deps.UserHandler.Logout, authn)
	users.GET("/profile", deps.UserHandler.Profile, authn)
	users.PUT("/profile", deps.UserHandler.UpdateProfile, authn)
	users.GET("", deps.UserHandler.List, authn, admin)
	users.DELETE("/:id", deps.UserHandler.Delete, authn, admin)
}

// RegisterOpsRoutes registers /health and /metrics.
// Both are unauthenticated; restrict /metrics at the network edge.
func RegisterOpsRoutes(e *echo.Echo, deps OpsDeps) {
	e.GET("/health", func(c echo.Context) error {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request().Context()); err != nil {
				middleware.GetLogger(c.Request().Context()).Warn().Err(err).Msg("health check failed")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}
}
