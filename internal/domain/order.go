package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order-related domain errors.
var (
	ErrOrderNotFound         = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrNoOrderItems          = &Error{Code: EINVALID, Message: "No order items"}
	ErrOrderAlreadyPaid      = &Error{Code: EALREADYVERIFIED, Message: "Order already paid"}
	ErrOrderAlreadyDelivered = &Error{Code: EINVALID, Message: "Order already delivered"}
	ErrStatusRequired        = &Error{Code: EINVALID, Message: "Status is required"}
	ErrExecutiveRequired     = &Error{Code: EINVALID, Message: "Delivery executive ID is required"}
	ErrNotOrderOwner         = &Error{Code: EFORBIDDEN, Message: "Not authorized to access this order"}
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusConfirmed      OrderStatus = "Confirmed"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// orderTransitions lists the statuses reachable from each status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing:     {OrderStatusConfirmed, OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusConfirmed:      {OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      {},
}

// ParseOrderStatus validates a client-supplied status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	if s == "" {
		return "", ErrStatusRequired
	}
	status := OrderStatus(s)
	if _, ok := orderTransitions[status]; !ok {
		return "", Errorf(EINVALID, "", "Invalid order status: %s", s)
	}
	return status, nil
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment methods accepted at order creation.
const (
	OrderPaymentCOD    = "COD"
	OrderPaymentOnline = "Online"
)

// Defaults applied when an order is marked paid without gateway details.
const (
	DefaultPaymentResultID     = "N/A"
	DefaultPaymentResultStatus = "Pending"
	DefaultPaymentEmail        = "customer@example.com"
)

// OrderItem is an immutable snapshot of a purchased product.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty" validate:"required,min=1"`
	Unit      string          `json:"unit"`
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
	Phone   string `json:"phone,omitempty"`
}

// Validate reports the first missing required field.
func (a ShippingAddress) Validate() error {
	switch {
	case a.Street == "":
		return Invalid("", "Shipping street is required")
	case a.City == "":
		return Invalid("", "Shipping city is required")
	case a.State == "":
		return Invalid("", "Shipping state is required")
	case a.ZipCode == "":
		return Invalid("", "Shipping zip code is required")
	case a.Country == "":
		return Invalid("", "Shipping country is required")
	}
	return nil
}

// PaymentResult records how an order was paid.
type PaymentResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	UpdateTime    string `json:"update_time"`
	PaymentMethod string `json:"payment_method,omitempty"`
	EmailAddress  string `json:"email_address"`
}

// WithDefaults fills blank fields. fallbackEmail is used before the generic
// placeholder address.
func (r PaymentResult) WithDefaults(now time.Time, fallbackEmail string) PaymentResult {
	if r.ID == "" {
		r.ID = DefaultPaymentResultID
	}
	if r.Status == "" {
		r.Status = DefaultPaymentResultStatus
	}
	if r.UpdateTime == "" {
		r.UpdateTime = now.UTC().Format(time.RFC3339)
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = OrderPaymentCOD
	}
	if r.EmailAddress == "" {
		r.EmailAddress = fallbackEmail
	}
	if r.EmailAddress == "" {
		r.EmailAddress = DefaultPaymentEmail
	}
	return r
}

// OrderUser identifies the order owner, with name and email populated on detail views.
type OrderUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
}

// Order is a frozen purchase plus its payment and delivery state.
type Order struct {
	ID                 uuid.UUID       `json:"id"`
	User               OrderUser       `json:"user"`
	OrderItems         []OrderItem     `json:"orderItems"`
	ShippingAddress    ShippingAddress `json:"shippingAddress"`
	PaymentMethod      string          `json:"paymentMethod"`
	ItemsPrice         decimal.Decimal `json:"itemsPrice"`
	TaxPrice           decimal.Decimal `json:"taxPrice"`
	ShippingPrice      decimal.Decimal `json:"shippingPrice"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	IsPaid             bool            `json:"isPaid"`
	PaidAt             *time.Time      `json:"paidAt,omitempty"`
	PaymentResult      *PaymentResult  `json:"paymentResult,omitempty"`
	IsDelivered        bool            `json:"isDelivered"`
	DeliveredAt        *time.Time      `json:"deliveredAt,omitempty"`
	ActualDeliveryTime *time.Time      `json:"actualDeliveryTime,omitempty"`
	OrderStatus        OrderStatus     `json:"orderStatus"`
	DeliveryExecutive  *uuid.UUID      `json:"deliveryExecutive,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// MarkPaid records payment. An order is paid at most once.
func (o *Order) MarkPaid(result PaymentResult, at time.Time) error {
	if o.IsPaid {
		return ErrOrderAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &result
	return nil
}

// MarkDelivered sets the delivery flags without touching OrderStatus.
func (o *Order) MarkDelivered(at time.Time) error {
	if o.IsDelivered {
		return ErrOrderAlreadyDelivered
	}
	o.IsDelivered = true
	o.DeliveredAt = &at
	return nil
}

// TransitionTo moves the order to next if the status graph allows it.
// Reaching Delivered also records the delivery time.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !o.OrderStatus.CanTransitionTo(next) {
		return Errorf(EINVALID, "", "Cannot change order status from %s to %s", o.OrderStatus, next)
	}
	o.OrderStatus = next
	if next == OrderStatusDelivered {
		if !o.IsDelivered {
			o.IsDelivered = true
			o.DeliveredAt = &at
		}
		o.ActualDeliveryTime = &at
	}
	return nil
}

// AssignExecutive hands the order to a delivery executive and moves it to
// Out for Delivery. Reassignment while already out for delivery keeps the status.
func (o *Order) AssignExecutive(executiveID uuid.UUID, at time.Time) error {
	if o.OrderStatus != OrderStatusOutForDelivery {
		if err := o.TransitionTo(OrderStatusOutForDelivery, at); err != nil {
			return err
		}
	}
	o.DeliveryExecutive = &executiveID
	return nil
}

// OrderService provides business logic for order placement and fulfilment.
type OrderService interface {
	// CreateOrder freezes the submitted items into a new order for the caller.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)

	// GetOrder returns an order with its owner populated. Owner or admin only.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)

	// ListMyOrders returns the caller's orders, newest first.
	ListMyOrders(ctx context.Context) ([]Order, error)

	// ListOrders returns every order. Admin only.
	ListOrders(ctx context.Context) ([]Order, error)

	// MarkPaid records payment on an order. Owner or admin only.
	MarkPaid(ctx context.Context, orderID uuid.UUID, result PaymentResult) (*Order, error)

	// MarkDelivered sets the delivery flags. Admin only.
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error)

	// SetStatus moves an order through the status graph. Admin only.
	SetStatus(ctx context.Context, orderID uuid.UUID, status string) (*Order, error)

	// AssignDeliveryExecutive hands an order to an executive. Admin only.
	AssignDeliveryExecutive(ctx context.Context, orderID, executiveID uuid.UUID) (*Order, error)
}

// CreateOrderParams contains the client-submitted order.
type CreateOrderParams struct {
	OrderItems      []OrderItem     `json:"orderItems" validate:"dive"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required,oneof=COD Online"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

// Validate checks the fields every order needs before it is stored.
func (p CreateOrderParams) Validate() error {
	if len(p.OrderItems) == 0 {
		return ErrNoOrderItems
	}
	for i, item := range p.OrderItems {
		if item.ProductID == uuid.Nil || item.Name == "" {
			return Errorf(EINVALID, "", "Order item %d is missing product or name", i+1)
		}
		if item.Qty < 1 {
			return Errorf(EINVALID, "", "Order item %d must have a quantity of at least 1", i+1)
		}
	}
	if err := p.ShippingAddress.Validate(); err != nil {
		return err
	}
	switch p.PaymentMethod {
	case OrderPaymentCOD, OrderPaymentOnline:
	default:
		return Errorf(EINVALID, "", "Invalid payment method: %s", p.PaymentMethod)
	}
	return nil
}
