package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

var errInvalidQuantity = &domain.Error{Code: domain.EINVALID, Message: "Quantity must be a number"}

// CartHandler handles the caller's cart
type CartHandler struct {
	carts domain.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts domain.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  quantity  `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity quantity `json:"quantity"`
}

// Get handles GET /api/cart
func (h *CartHandler) Get(c echo.Context) error {
	cart, err := h.carts.GetCart(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// Add handles POST /api/cart
// A missing or unparsable quantity adds one unit.
func (h *CartHandler) Add(c echo.Context) error {
	var req addItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	qty, ok := req.Quantity.Int()
	if !ok {
		qty = 1
	}

	cart, err := h.carts.AddItem(c.Request().Context(), req.ProductID, qty)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// Update handles PUT /api/cart/:productId
func (h *CartHandler) Update(c echo.Context) error {
	productID, err := pathID(c, "productId")
	if err != nil {
		return err
	}

	var req setQuantityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	qty, ok := req.Quantity.Int()
	if !ok {
		return errInvalidQuantity
	}

	cart, err := h.carts.SetItemQuantity(c.Request().Context(), productID, qty)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// Remove handles DELETE /api/cart/:productId
func (h *CartHandler) Remove(c echo.Context) error {
	productID, err := pathID(c, "productId")
	if err != nil {
		return err
	}

	cart, err := h.carts.RemoveItem(c.Request().Context(), productID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(c echo.Context) error {
	cart, err := h.carts.Clear(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}
