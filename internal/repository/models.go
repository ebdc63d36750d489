package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Phone        pgtype.Text
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Product struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	Images        []string
	Image         string
	Category      string
	SubCategory   string
	Brand         string
	CountInStock  int32
	Stock         pgtype.Int4
	Unit          string
	IsAvailable   bool
	VendorID      pgtype.UUID
	Rating        decimal.Decimal
	NumReviews    int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ProductReview struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Rating    int32
	Comment   string
	Images    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cart stores its lines as a JSONB document.
type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Items      []byte
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	OrderItems          []byte
	ShippingAddress     []byte
	PaymentMethod       string
	ItemsPrice          decimal.Decimal
	TaxPrice            decimal.Decimal
	ShippingPrice       decimal.Decimal
	TotalPrice          decimal.Decimal
	IsPaid              bool
	PaidAt              pgtype.Timestamptz
	PaymentResult       []byte
	IsDelivered         bool
	DeliveredAt         pgtype.Timestamptz
	ActualDeliveryTime  pgtype.Timestamptz
	OrderStatus         string
	DeliveryExecutiveID pgtype.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderWithUser is an order joined with its owner's name and email.
type OrderWithUser struct {
	Order
	UserName  string
	UserEmail string
}

type Payment struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	OrderID         uuid.UUID
	PaymentMethod   string
	Amount          decimal.Decimal
	Currency        string
	TransactionID   string
	Status          string
	GatewayResponse []byte
	ErrorReason     pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
