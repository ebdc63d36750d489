package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

// PaymentHandler handles payment initiation, verification and administration
type PaymentHandler struct {
	payments domain.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments domain.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type verifiedPayment struct {
	ID              string                 `json:"id"`
	TransactionID   string                 `json:"transactionId"`
	Status          domain.PaymentStatus   `json:"status"`
	GatewayResponse domain.GatewayResponse `json:"paymentGatewayResponse"`
	ErrorReason     string                 `json:"errorReason,omitempty"`
}

// Initiate handles POST /api/payment/initiate
func (h *PaymentHandler) Initiate(c echo.Context) error {
	var params domain.InitiatePaymentParams
	if err := bind(c, &params); err != nil {
		return err
	}

	payment, err := h.payments.Initiate(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"payment": payment})
}

// Verify handles POST /api/payment/verify
func (h *PaymentHandler) Verify(c echo.Context) error {
	var params domain.VerifyPaymentParams
	if err := bind(c, &params); err != nil {
		return err
	}

	payment, err := h.payments.Verify(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"payment": verifiedPayment{
		ID:              payment.ID.String(),
		TransactionID:   payment.TransactionID,
		Status:          payment.Status,
		GatewayResponse: payment.GatewayResponse,
		ErrorReason:     payment.ErrorReason,
	}})
}

// Get handles GET /api/payment/:id
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.payments.GetPayment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payment)
}

// Status handles GET /api/payment/status/:transactionId
func (h *PaymentHandler) Status(c echo.Context) error {
	payment, err := h.payments.GetStatus(c.Request().Context(), c.Param("transactionId"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"status": payment.Status, "payment": payment})
}

// Mine handles GET /api/payment/my-payments
func (h *PaymentHandler) Mine(c echo.Context) error {
	payments, err := h.payments.ListMyPayments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payments)
}

// List handles GET /api/payment
func (h *PaymentHandler) List(c echo.Context) error {
	payments, err := h.payments.ListPayments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payments)
}

// UpdateStatus handles PUT /api/payment/:id/status
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payment)
}
