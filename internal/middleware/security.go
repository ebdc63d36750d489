package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// SecurityHeadersConfig configures security headers
type SecurityHeadersConfig struct {
	// ContentSecurityPolicy sets the Content-Security-Policy header
	ContentSecurityPolicy string

	// FrameOptions sets X-Frame-Options (DENY or SAMEORIGIN)
	FrameOptions string

	// ReferrerPolicy sets Referrer-Policy header
	ReferrerPolicy string

	// HSTSMaxAge sets Strict-Transport-Security max-age in seconds.
	// Set to 0 to disable HSTS, as in development.
	HSTSMaxAge int
}

// DefaultSecurityHeadersConfig returns a configuration for a JSON-only API.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		HSTSMaxAge:            31536000, // 1 year
	}
}

// SecurityHeaders adds security headers to all responses
func SecurityHeaders(config SecurityHeadersConfig) echo.MiddlewareFunc {
	return echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         config.FrameOptions,
		HSTSMaxAge:            config.HSTSMaxAge,
		ContentSecurityPolicy: config.ContentSecurityPolicy,
		ReferrerPolicy:        config.ReferrerPolicy,
	})
}

// CORS allows the storefront frontend at origin to call the API with bearer tokens.
// An empty origin allows any origin.
func CORS(origin string) echo.MiddlewareFunc {
	origins := []string{"*"}
	if origin != "" {
		origins = []string{origin}
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        600,
	})
}
