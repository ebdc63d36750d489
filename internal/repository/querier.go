package repository

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the full set of storefront queries.
type Querier interface {
	// Users
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// Products
	CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetProductByIDForUpdate(ctx context.Context, id uuid.UUID) (Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error)
	CountProducts(ctx context.Context, arg CountProductsParams) (int64, error)
	UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error)
	UpdateProductRating(ctx context.Context, arg UpdateProductRatingParams) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	// Reviews
	CreateReview(ctx context.Context, arg CreateReviewParams) (ProductReview, error)
	GetReview(ctx context.Context, arg GetReviewParams) (ProductReview, error)
	GetReviewByUser(ctx context.Context, arg GetReviewByUserParams) (ProductReview, error)
	ListReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]ProductReview, error)
	UpdateReview(ctx context.Context, arg UpdateReviewParams) (ProductReview, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error

	// Carts
	EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error)
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (Cart, error)
	UpdateCart(ctx context.Context, arg UpdateCartParams) (Cart, error)

	// Orders
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (OrderWithUser, error)
	GetOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListOrders(ctx context.Context) ([]OrderWithUser, error)
	UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error)

	// Payments
	CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error)
	GetPaymentByID(ctx context.Context, id uuid.UUID) (Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (Payment, error)
	GetPaymentByTransactionIDForUpdate(ctx context.Context, transactionID string) (Payment, error)
	GetPaymentByIDForUpdate(ctx context.Context, id uuid.UUID) (Payment, error)
	GetLivePaymentByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error)
	ListPayments(ctx context.Context) ([]Payment, error)
	UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (Payment, error)
}

var _ Querier = (*Queries)(nil)
