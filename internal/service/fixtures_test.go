package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/repository"
)

// seedUser stores an account and returns the caller identity for it.
func seedUser(t *testing.T, store *memStore, name string, role domain.Role) *domain.User {
	t.Helper()
	row, err := store.CreateUser(context.Background(), repository.CreateUserParams{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "unused",
		Role:         string(role),
	})
	require.NoError(t, err)
	return &domain.User{ID: row.ID, Name: row.Name, Email: row.Email, Role: role}
}

func asUser(user *domain.User) context.Context {
	return domain.NewContextWithUser(context.Background(), user)
}

// seedProduct stores a product with the given price and stock.
func seedProduct(t *testing.T, store *memStore, name string, price string, stock int) repository.Product {
	t.Helper()
	return store.putProduct(repository.Product{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Images:       []string{"https://cdn.example.com/" + name + ".jpg"},
		Category:     "Groceries",
		CountInStock: int32(stock),
		Unit:         "kg",
		IsAvailable:  true,
		Rating:       decimal.Zero,
	})
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:  "12 MG Road",
		City:    "Bengaluru",
		State:   "KA",
		ZipCode: "560001",
		Country: "IN",
	}
}

// orderParams returns a valid COD order for one line of product.
func orderParams(product repository.Product, qty int) domain.CreateOrderParams {
	price := product.Price
	items := price.Mul(decimal.NewFromInt(int64(qty)))
	tax := decimal.RequireFromString("36")
	return domain.CreateOrderParams{
		OrderItems: []domain.OrderItem{{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Images[0],
			Price:     price,
			Qty:       qty,
		}},
		ShippingAddress: testAddress(),
		PaymentMethod:   domain.OrderPaymentCOD,
		ItemsPrice:      items,
		TaxPrice:        tax,
		ShippingPrice:   decimal.Zero,
		TotalPrice:      items.Add(tax),
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.ErrorCode(err), "error: %v", err)
}
