package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

// UserHandler handles registration, login and account administration
type UserHandler struct {
	users domain.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users domain.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/users
func (h *UserHandler) Register(c echo.Context) error {
	var params domain.RegisterParams
	if err := bind(c, &params); err != nil {
		return err
	}

	result, err := h.users.Register(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Logout handles POST /api/users/logout
// Tokens are stateless; the client discards its copy.
func (h *UserHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Profile handles GET /api/users/profile
func (h *UserHandler) Profile(c echo.Context) error {
	account, err := h.users.GetProfile(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateProfile handles PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var params domain.UpdateProfileParams
	if err := bind(c, &params); err != nil {
		return err
	}

	result, err := h.users.UpdateProfile(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// List handles GET /api/users
func (h *UserHandler) List(c echo.Context) error {
	accounts, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accounts)
}

// Delete handles DELETE /api/users/:id
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.users.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User removed"})
}
