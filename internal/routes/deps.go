package routes

import (
	"context"

	"github.com/dukerupert/basket/internal/handler/api"
	"github.com/dukerupert/basket/internal/middleware"
)

// APIDeps contains dependencies for the /api routes
type APIDeps struct {
	CartHandler    *api.CartHandler
	OrderHandler   *api.OrderHandler
	PaymentHandler *api.PaymentHandler
	ProductHandler *api.ProductHandler
	UserHandler    *api.UserHandler

	// Tokens authenticates bearer tokens
	Tokens middleware.TokenParser

	// RateLimit applies to every /api route; AuthRateLimit additionally
	// applies to login and registration.
	RateLimit     middleware.RateLimiterConfig
	AuthRateLimit middleware.RateLimiterConfig
}

// OpsDeps contains dependencies for the health and metrics endpoints
type OpsDeps struct {
	Metrics *middleware.Metrics

	// Ready reports whether the backing services are reachable
	Ready func(ctx context.Context) error
}
