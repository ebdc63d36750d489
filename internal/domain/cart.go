package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound    = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be a whole number"}
)

const (
	// UnknownProductName labels a cart line whose product had no name at snapshot time.
	UnknownProductName = "Unknown Product"

	// PlaceholderImage is used when a product has no image at snapshot time.
	PlaceholderImage = "https://via.placeholder.com/150"
)

// CartService provides business logic for the per-user shopping cart.
// Every operation acts on the cart of the user in context.
type CartService interface {
	// GetCart returns the caller's cart, creating an empty one on first access.
	GetCart(ctx context.Context) (*CartView, error)

	// AddItem adds quantity units of a product, merging into an existing line.
	// Non-positive quantities are treated as 1.
	AddItem(ctx context.Context, productID uuid.UUID, quantity int) (*CartView, error)

	// SetItemQuantity re-snapshots a line at the given quantity.
	// A quantity of zero or less removes the line.
	SetItemQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*CartView, error)

	// RemoveItem deletes the line for a product, if present.
	RemoveItem(ctx context.Context, productID uuid.UUID) (*CartView, error)

	// Clear empties the cart.
	Clear(ctx context.Context) (*CartView, error)
}

// CartItem is a snapshot of a product taken when it was placed in the cart.
type CartItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Unit      string          `json:"unit"`
}

// NewCartItem snapshots product p at the given quantity, applying display defaults.
func NewCartItem(p *Product, quantity int) CartItem {
	name := p.Name
	if name == "" {
		name = UnknownProductName
	}

	image := PlaceholderImage
	switch {
	case len(p.Images) > 0 && p.Images[0] != "":
		image = p.Images[0]
	case p.Image != "":
		image = p.Image
	}

	unit := p.Unit
	if unit == "" {
		unit = DefaultUnit
	}

	return CartItem{
		ProductID: p.ID,
		Quantity:  quantity,
		Price:     p.Price,
		Name:      name,
		Image:     image,
		Unit:      unit,
	}
}

// Subtotal returns price times quantity for the line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the mutable per-user cart.
type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Items      []CartItem
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recalculate sets TotalPrice to the sum of line subtotals.
// It must run before every persist.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.TotalPrice = total
}

// indexOf returns the position of the line for productID, or -1.
func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Find returns the line for productID.
func (c *Cart) Find(productID uuid.UUID) (CartItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

// Add merges item into the cart. An existing line keeps its snapshot and
// has its quantity incremented.
func (c *Cart) Add(item CartItem) {
	if i := c.indexOf(item.ProductID); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		return
	}
	c.Items = append(c.Items, item)
}

// Replace overwrites the existing line for item.ProductID.
// It reports false and leaves the cart unchanged when no such line exists.
func (c *Cart) Replace(item CartItem) bool {
	i := c.indexOf(item.ProductID)
	if i < 0 {
		return false
	}
	c.Items[i] = item
	return true
}

// Remove deletes the line for productID and reports whether one existed.
func (c *Cart) Remove(productID uuid.UUID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// CartView is the cart as returned to clients, with live product data resolved.
type CartView struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user"`
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// CartLine is a cart snapshot plus the live product, which is nil when the
// product no longer exists.
type CartLine struct {
	CartItem
	Product *ProductSummary `json:"product"`
}
