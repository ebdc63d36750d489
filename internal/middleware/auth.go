package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

// TokenParser validates a bearer token and returns the caller it names.
type TokenParser interface {
	Parse(token string) (*domain.User, error)
}

var errTokenFailed = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Not authorized, token failed"}

// Authenticate requires a valid bearer token and puts the caller in the
// request context.
func Authenticate(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrNotAuthenticated
			}

			user, err := tokens.Parse(token)
			if err != nil {
				GetLogger(c.Request().Context()).Debug().Err(err).Msg("bearer token rejected")
				return errTokenFailed
			}

			ctx := domain.NewContextWithUser(c.Request().Context(), user)
			ctx = withUserID(ctx, user.ID.String())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAdmin ensures the authenticated caller is an admin.
// It must run after Authenticate.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return domain.ErrNotAuthenticated
			}
			if !user.IsAdmin() {
				return domain.ErrNotAdmin
			}
			return next(c)
		}
	}
}

// GetUser retrieves the authenticated caller, or nil.
func GetUser(c echo.Context) *domain.User {
	return domain.UserFromContext(c.Request().Context())
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
