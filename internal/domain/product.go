package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product-related domain errors.
var (
	ErrProductNotFound        = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrReviewNotFound         = &Error{Code: ENOTFOUND, Message: "Review not found"}
	ErrProductAlreadyReviewed = &Error{Code: EDUPLICATE, Message: "Product already reviewed"}
	ErrNotProductVendor       = &Error{Code: EFORBIDDEN, Message: "Not authorized to modify this product"}
	ErrNotReviewAuthor        = &Error{Code: EFORBIDDEN, Message: "Not authorized to modify this review"}
)

// DefaultUnit is the selling unit used when a product does not name one.
const DefaultUnit = "piece"

const (
	// DefaultPageSize is the catalog page size when the caller does not request one.
	DefaultPageSize = 10

	// MaxPageSize caps the catalog page size.
	MaxPageSize = 100

	// maxOffset is the largest row offset the store accepts.
	maxOffset = math.MaxInt32
)

// Product is a catalog item.
//
// Stock is the vendor-managed override; when nil, CountInStock is authoritative.
type Product struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Images        []string         `json:"images"`
	Image         string           `json:"image,omitempty"`
	Category      string           `json:"category"`
	SubCategory   string           `json:"subCategory,omitempty"`
	Brand         string           `json:"brand,omitempty"`
	CountInStock  int              `json:"countInStock"`
	Stock         *int             `json:"stock,omitempty"`
	Unit          string           `json:"unit"`
	IsAvailable   bool             `json:"isAvailable"`
	VendorID      *uuid.UUID       `json:"vendor,omitempty"`
	Reviews       []Review         `json:"reviews"`
	Rating        decimal.Decimal  `json:"rating"`
	NumReviews    int              `json:"numReviews"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// AvailableStock returns the quantity that may be placed in a cart.
func (p *Product) AvailableStock() int {
	if p.Stock != nil {
		return *p.Stock
	}
	return p.CountInStock
}

// Summary returns the live product view embedded in cart responses.
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Images:       p.Images,
		CountInStock: p.CountInStock,
	}
}

// ProductSummary is the subset of a product resolved into cart views.
type ProductSummary struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Images       []string        `json:"images"`
	CountInStock int             `json:"countInStock"`
}

// Review is a customer rating of a product. A user reviews a product at most once.
type Review struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product"`
	UserID    uuid.UUID `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AverageRating returns the mean rating of reviews, zero when there are none.
func AverageRating(reviews []Review) decimal.Decimal {
	if len(reviews) == 0 {
		return decimal.Zero
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(reviews)))).Round(2)
}

// ProductService provides catalog browsing, administration and reviews.
type ProductService interface {
	// ListProducts returns a page of products matching the filter, newest first.
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)

	// GetProduct returns a product with its reviews.
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)

	// CreateProduct adds a product owned by the caller.
	CreateProduct(ctx context.Context, params ProductParams) (*Product, error)

	// UpdateProduct replaces the editable fields of a product. Admin or vendor only.
	UpdateProduct(ctx context.Context, productID uuid.UUID, params ProductParams) (*Product, error)

	// DeleteProduct removes a product. Admin or vendor only.
	DeleteProduct(ctx context.Context, productID uuid.UUID) error

	// AddReview records the caller's review and refreshes the rating.
	AddReview(ctx context.Context, productID uuid.UUID, params ReviewParams) (*Product, error)

	// UpdateReview edits the caller's own review and refreshes the rating.
	UpdateReview(ctx context.Context, productID, reviewID uuid.UUID, params ReviewParams) (*Product, error)

	// DeleteReview removes a review. Author or admin only.
	DeleteReview(ctx context.Context, productID, reviewID uuid.UUID) (*Product, error)
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Keyword  string
	Category string
	Page     int
	PageSize int
}

// Normalize applies listing defaults and bounds. Pages past the last
// addressable offset are pulled back to it; they are empty either way.
func (f *ProductFilter) Normalize() {
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	f.PageSize = min(f.PageSize, MaxPageSize)
	f.Page = min(max(f.Page, 1), maxOffset/f.PageSize)
	if f.Category == "all" {
		f.Category = ""
	}
}

// Offset is the number of rows before the requested page. Call Normalize first.
func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Count    int       `json:"count"`
	Pages    int       `json:"pages"`
	Page     int       `json:"page"`
	Products []Product `json:"products"`
}

// ProductParams contains the editable product fields.
type ProductParams struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Description   string           `json:"description" validate:"max=5000"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	Images        []string         `json:"images" validate:"dive,max=2048"`
	Category      string           `json:"category" validate:"required,max=100"`
	SubCategory   string           `json:"subCategory" validate:"max=100"`
	Brand         string           `json:"brand" validate:"max=100"`
	CountInStock  int              `json:"countInStock" validate:"gte=0"`
	Stock         *int             `json:"stock" validate:"omitempty,gte=0"`
	Unit          string           `json:"unit" validate:"max=30"`
	IsAvailable   *bool            `json:"isAvailable"`
}

// ReviewParams contains a review's rating and text.
type ReviewParams struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Comment string   `json:"comment" validate:"max=2000"`
	Images  []string `json:"images" validate:"dive,max=2048"`
}
