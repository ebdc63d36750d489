package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Body size limits, in echo's size notation.
const (
	// DefaultMaxBodySize suits every JSON endpoint of the API.
	DefaultMaxBodySize = "1M"

	// LargeMaxBodySize is for product payloads carrying many image URLs.
	LargeMaxBodySize = "4M"
)

// MaxBodySize limits the size of request bodies.
// If no size is provided, DefaultMaxBodySize is used.
// Oversized bodies are rejected with 413 Request Entity Too Large.
func MaxBodySize(limit ...string) echo.MiddlewareFunc {
	size := DefaultMaxBodySize
	if len(limit) > 0 && limit[0] != "" {
		size = limit[0]
	}
	return echomw.BodyLimit(size)
}

// Common timeout values
const (
	// DefaultTimeout is the default request timeout (30 seconds)
	DefaultTimeout = 30 * time.Second

	// ShortTimeout is for quick operations (5 seconds)
	ShortTimeout = 5 * time.Second
)

// Timeout bounds the request context. Handlers that exceed it fail with
// 503 Service Unavailable once a blocking call observes the deadline.
func Timeout(timeout ...time.Duration) echo.MiddlewareFunc {
	duration := DefaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		duration = timeout[0]
	}
	return echomw.ContextTimeout(duration)
}
