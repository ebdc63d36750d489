package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/dukerupert/basket/internal/domain"
)

// RateLimiterConfig configures the rate limiter
type RateLimiterConfig struct {
	// RequestsPerSecond is the rate of token refill
	RequestsPerSecond float64

	// BurstSize is the maximum number of requests allowed in a burst
	BurstSize int

	// ExpiresIn is how long an idle client's limiter is kept
	ExpiresIn time.Duration
}

// DefaultRateLimiterConfig returns sensible defaults
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		ExpiresIn:         3 * time.Minute,
	}
}

// StrictRateLimiterConfig returns stricter limits for login and registration
func StrictRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         5,
		ExpiresIn:         3 * time.Minute,
	}
}

var errTooManyRequests = &domain.Error{Code: domain.ERATELIMIT, Message: "Too many requests"}

// RateLimit limits requests per client IP with a token bucket.
func RateLimit(config RateLimiterConfig) echo.MiddlewareFunc {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultRateLimiterConfig().RequestsPerSecond
	}
	if config.BurstSize <= 0 {
		config.BurstSize = int(config.RequestsPerSecond * 2)
	}

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(config.RequestsPerSecond),
		Burst:     config.BurstSize,
		ExpiresIn: config.ExpiresIn,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return domain.Internal(err, "", "Failed to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", "1")
			GetLogger(c.Request().Context()).Info().Str("client", identifier).Msg("rate limit exceeded")
			return errTooManyRequests
		},
	})
}
