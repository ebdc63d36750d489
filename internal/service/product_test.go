package service

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/domain"
)

type productFixture struct {
	store  *memStore
	svc    domain.ProductService
	vendor *domain.User
	buyer  *domain.User
	second *domain.User
	admin  *domain.User
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	store := newMemStore()
	return &productFixture{
		store:  store,
		svc:    NewProductService(store),
		vendor: seedUser(t, store, "vendor", domain.RoleUser),
		buyer:  seedUser(t, store, "kiran", domain.RoleUser),
		second: seedUser(t, store, "divya", domain.RoleUser),
		admin:  seedUser(t, store, "admin", domain.RoleAdmin),
	}
}

func (f *productFixture) create(t *testing.T, name string) *domain.Product {
	t.Helper()
	product, err := f.svc.CreateProduct(asUser(f.vendor), domain.ProductParams{
		Name:         name,
		Price:        decimal.RequireFromString("45.50"),
		Category:     "Fruits",
		CountInStock: 12,
	})
	require.NoError(t, err)
	return product
}

func TestProductService_CreateProductDefaults(t *testing.T) {
	f := newProductFixture(t)

	product := f.create(t, "guava")

	assert.Equal(t, domain.DefaultUnit, product.Unit)
	assert.True(t, product.IsAvailable)
	require.NotNil(t, product.VendorID)
	assert.Equal(t, f.vendor.ID, *product.VendorID)
	assert.Empty(t, product.Images)
	assert.NotNil(t, product.Images)
	assert.True(t, product.Rating.IsZero())
	assert.Zero(t, product.NumReviews)
}

func TestProductService_CreateProductValidation(t *testing.T) {
	f := newProductFixture(t)
	negative := -1
	negativePrice := decimal.NewFromInt(-5)

	tests := []struct {
		name   string
		params domain.ProductParams
	}{
		{name: "missing name", params: domain.ProductParams{Category: "Fruits"}},
		{name: "missing category", params: domain.ProductParams{Name: "kiwi"}},
		{name: "negative price", params: domain.ProductParams{Name: "kiwi", Category: "Fruits", Price: negativePrice}},
		{name: "negative discount", params: domain.ProductParams{Name: "kiwi", Category: "Fruits", DiscountPrice: &negativePrice}},
		{name: "negative stock override", params: domain.ProductParams{Name: "kiwi", Category: "Fruits", Stock: &negative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateProduct(asUser(f.vendor), tt.params)
			requireCode(t, err, domain.EINVALID)
		})
	}
	assert.Empty(t, f.store.products)
}

func TestProductService_ListProducts(t *testing.T) {
	f := newProductFixture(t)
	for i := 0; i < 12; i++ {
		f.create(t, fmt.Sprintf("Alphonso mango %02d", i))
	}
	_, err := f.svc.CreateProduct(asUser(f.vendor), domain.ProductParams{
		Name:        "Basmati rice",
		Description: "Aged long grain",
		Category:    "Staples",
		Price:       decimal.NewFromInt(120),
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    domain.ProductFilter
		wantCount int
		wantPages int
		wantPage  int
		wantLen   int
		wantFirst string
	}{
		{
			name:      "defaults",
			filter:    domain.ProductFilter{},
			wantCount: 13,
			wantPages: 2,
			wantPage:  1,
			wantLen:   10,
			wantFirst: "Basmati rice",
		},
		{
			name:      "second page",
			filter:    domain.ProductFilter{Page: 2},
			wantCount: 13,
			wantPages: 2,
			wantPage:  2,
			wantLen:   3,
			wantFirst: "Alphonso mango 02",
		},
		{
			name:      "keyword is case insensitive",
			filter:    domain.ProductFilter{Keyword: "MANGO", PageSize: 5},
			wantCount: 12,
			wantPages: 3,
			wantPage:  1,
			wantLen:   5,
			wantFirst: "Alphonso mango 11",
		},
		{
			name:      "keyword matches description",
			filter:    domain.ProductFilter{Keyword: "long grain"},
			wantCount: 1,
			wantPages: 1,
			wantPage:  1,
			wantLen:   1,
			wantFirst: "Basmati rice",
		},
		{
			name:      "category all is no filter",
			filter:    domain.ProductFilter{Category: "all"},
			wantCount: 13,
			wantPages: 2,
			wantPage:  1,
			wantLen:   10,
			wantFirst: "Basmati rice",
		},
		{
			name:      "category",
			filter:    domain.ProductFilter{Category: "Staples"},
			wantCount: 1,
			wantPages: 1,
			wantPage:  1,
			wantLen:   1,
			wantFirst: "Basmati rice",
		},
		{
			name:      "no match",
			filter:    domain.ProductFilter{Keyword: "durian"},
			wantCount: 0,
			wantPages: 0,
			wantPage:  1,
			wantLen:   0,
		},
		{
			name:      "wildcard keyword is literal",
			filter:    domain.ProductFilter{Keyword: "%"},
			wantCount: 0,
			wantPages: 0,
			wantPage:  1,
			wantLen:   0,
		},
		{
			name:      "page size capped",
			filter:    domain.ProductFilter{PageSize: 1000},
			wantCount: 13,
			wantPages: 1,
			wantPage:  1,
			wantLen:   13,
			wantFirst: "Basmati rice",
		},
		{
			name:      "page past the last offset",
			filter:    domain.ProductFilter{Page: 30000000, PageSize: 100},
			wantCount: 13,
			wantPages: 1,
			wantPage:  math.MaxInt32 / 100,
			wantLen:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.ListProducts(context.Background(), tt.filter)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCount, page.Count)
			assert.Equal(t, tt.wantPages, page.Pages)
			assert.Equal(t, tt.wantPage, page.Page)
			require.Len(t, page.Products, tt.wantLen)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, page.Products[0].Name)
			}
		})
	}
}

func TestProductService_UpdateAndDeleteAuthorization(t *testing.T) {
	f := newProductFixture(t)
	product := f.create(t, "papaya")
	unavailable := false
	params := domain.ProductParams{
		Name:         "papaya (large)",
		Price:        decimal.NewFromInt(60),
		Category:     "Fruits",
		CountInStock: 4,
		IsAvailable:  &unavailable,
	}

	_, err := f.svc.UpdateProduct(asUser(f.buyer), product.ID, params)
	assert.ErrorIs(t, err, domain.ErrNotProductVendor)

	updated, err := f.svc.UpdateProduct(asUser(f.vendor), product.ID, params)
	require.NoError(t, err)
	assert.Equal(t, "papaya (large)", updated.Name)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, 4, updated.CountInStock)

	params.IsAvailable = nil
	params.Name = "papaya"
	updated, err = f.svc.UpdateProduct(asUser(f.admin), product.ID, params)
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable, "omitted availability keeps the stored value")

	_, err = f.svc.UpdateProduct(asUser(f.vendor), uuid.New(), params)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	err = f.svc.DeleteProduct(asUser(f.buyer), product.ID)
	assert.ErrorIs(t, err, domain.ErrNotProductVendor)

	require.NoError(t, f.svc.DeleteProduct(asUser(f.vendor), product.ID))
	_, err = f.svc.GetProduct(context.Background(), product.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	err = f.svc.DeleteProduct(asUser(f.admin), product.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_ReviewsRecalculateRating(t *testing.T) {
	f := newProductFixture(t)
	product := f.create(t, "jackfruit")

	after, err := f.svc.AddReview(asUser(f.buyer), product.ID, domain.ReviewParams{Rating: 4, Comment: "sweet"})
	require.NoError(t, err)
	assert.Equal(t, 1, after.NumReviews)
	assert.True(t, decimal.NewFromInt(4).Equal(after.Rating))

	after, err = f.svc.AddReview(asUser(f.second), product.ID, domain.ReviewParams{Rating: 2, Comment: "too ripe"})
	require.NoError(t, err)
	assert.Equal(t, 2, after.NumReviews)
	assert.Equal(t, "3", after.Rating.String())
	require.Len(t, after.Reviews, 2)
	assert.Equal(t, "kiran", after.Reviews[0].Name)
	assert.Equal(t, "divya", after.Reviews[1].Name)

	got, err := f.svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	assert.Equal(t, "3.00", got.Rating.StringFixed(2))
}

func TestProductService_ReviewRules(t *testing.T) {
	f := newProductFixture(t)
	product := f.create(t, "lychee")

	_, err := f.svc.AddReview(asUser(f.buyer), product.ID, domain.ReviewParams{Rating: 5})
	require.NoError(t, err)

	_, err = f.svc.AddReview(asUser(f.buyer), product.ID, domain.ReviewParams{Rating: 1})
	requireCode(t, err, domain.EDUPLICATE)
	assert.Equal(t, "Product already reviewed", domain.ErrorMessage(err))

	for _, rating := range []int{0, 6, -3} {
		_, err = f.svc.AddReview(asUser(f.second), product.ID, domain.ReviewParams{Rating: rating})
		requireCode(t, err, domain.EINVALID)
	}

	_, err = f.svc.AddReview(asUser(f.second), uuid.New(), domain.ReviewParams{Rating: 3})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.svc.AddReview(context.Background(), product.ID, domain.ReviewParams{Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	got, err := f.svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumReviews)
	assert.True(t, decimal.NewFromInt(5).Equal(got.Rating))
}

func TestProductService_UpdateAndDeleteReview(t *testing.T) {
	f := newProductFixture(t)
	product := f.create(t, "chikoo")

	_, err := f.svc.AddReview(asUser(f.buyer), product.ID, domain.ReviewParams{Rating: 4})
	require.NoError(t, err)
	after, err := f.svc.AddReview(asUser(f.second), product.ID, domain.ReviewParams{Rating: 2})
	require.NoError(t, err)
	buyerReview := after.Reviews[0].ID
	secondReview := after.Reviews[1].ID

	_, err = f.svc.UpdateReview(asUser(f.second), product.ID, buyerReview, domain.ReviewParams{Rating: 1})
	assert.ErrorIs(t, err, domain.ErrNotReviewAuthor)

	_, err = f.svc.UpdateReview(asUser(f.admin), product.ID, buyerReview, domain.ReviewParams{Rating: 1})
	assert.ErrorIs(t, err, domain.ErrNotReviewAuthor)

	after, err = f.svc.UpdateReview(asUser(f.buyer), product.ID, buyerReview, domain.ReviewParams{Rating: 5, Comment: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, "3.5", after.Rating.String())

	_, err = f.svc.UpdateReview(asUser(f.buyer), product.ID, uuid.New(), domain.ReviewParams{Rating: 5})
	assert.ErrorIs(t, err, domain.ErrReviewNotFound)

	_, err = f.svc.DeleteReview(asUser(f.buyer), product.ID, secondReview)
	assert.ErrorIs(t, err, domain.ErrNotReviewAuthor)

	after, err = f.svc.DeleteReview(asUser(f.admin), product.ID, secondReview)
	require.NoError(t, err)
	assert.Equal(t, 1, after.NumReviews)
	assert.True(t, decimal.NewFromInt(5).Equal(after.Rating))

	after, err = f.svc.DeleteReview(asUser(f.buyer), product.ID, buyerReview)
	require.NoError(t, err)
	assert.Zero(t, after.NumReviews)
	assert.True(t, after.Rating.IsZero())
	assert.Empty(t, after.Reviews)
}
