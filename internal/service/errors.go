package service

import (
	"github.com/dukerupert/basket/internal/domain"
)

// Payment gateway errors
var (
	ErrPaymentProcessing = domain.Errorf(domain.ECONFLICT, "", "Payment is still processing")
)
