package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

// OrderHandler handles order placement and fulfilment
type OrderHandler struct {
	orders domain.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders domain.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type assignRequest struct {
	DeliveryExecutiveID uuid.UUID `json:"deliveryExecutiveId" validate:"required"`
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(c echo.Context) error {
	var params domain.CreateOrderParams
	if err := bind(c, &params); err != nil {
		return err
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, order)
}

// Get handles GET /api/orders/:id
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// Mine handles GET /api/orders/myorders
func (h *OrderHandler) Mine(c echo.Context) error {
	orders, err := h.orders.ListMyOrders(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// List handles GET /api/orders
func (h *OrderHandler) List(c echo.Context) error {
	orders, err := h.orders.ListOrders(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// MarkPaid handles PUT /api/orders/:id/pay
// The body is optional; missing payment result fields take defaults.
func (h *OrderHandler) MarkPaid(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var result domain.PaymentResult
	if err := bind(c, &result); err != nil {
		return err
	}

	order, err := h.orders.MarkPaid(c.Request().Context(), id, result)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// MarkDelivered handles PUT /api/orders/:id/deliver
func (h *OrderHandler) MarkDelivered(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.MarkDelivered(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// SetStatus handles PUT /api/orders/:id/status
func (h *OrderHandler) SetStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"order": order})
}

// Assign handles PUT /api/orders/:id/assign
func (h *OrderHandler) Assign(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req assignRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.AssignDeliveryExecutive(c.Request().Context(), id, req.DeliveryExecutiveID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"order": order})
}
