package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/lock"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/telemetry"
)

type cartService struct {
	store  repository.Store
	locker lock.Locker
}

// NewCartService creates a new CartService instance
func NewCartService(store repository.Store, locker lock.Locker) domain.CartService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &cartService{
		store:  store,
		locker: locker,
	}
}

func cartLockKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

// GetCart returns the caller's cart, creating it on first access.
func (s *cartService) GetCart(ctx context.Context) (*domain.CartView, error) {
	const op = "cart.get"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.store.EnsureCart(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}
	cart, err := cartFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}

	return s.view(ctx, cart)
}

// AddItem snapshots a product into the caller's cart.
func (s *cartService) AddItem(ctx context.Context, productID uuid.UUID, quantity int) (*domain.CartView, error) {
	const op = "cart.add_item"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(user.ID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to lock cart")
	}
	defer unlock()

	product, err := s.getProduct(ctx, op, productID)
	if err != nil {
		return nil, err
	}
	if available := product.AvailableStock(); quantity > available {
		return nil, domain.OutOfStock(op, max(available, 0))
	}

	row, err := s.store.EnsureCart(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}
	cart, err := cartFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}

	_, merged := cart.Find(productID)
	cart.Add(domain.NewCartItem(product, quantity))

	if err := s.save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}

	if telemetry.Business != nil {
		telemetry.Business.CartItemsAdded.WithLabelValues(strconv.FormatBool(merged)).Inc()
	}

	return s.view(ctx, cart)
}

// SetItemQuantity re-snapshots a line at quantity, removing it when quantity <= 0.
func (s *cartService) SetItemQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*domain.CartView, error) {
	const op = "cart.update_item"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(user.ID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to lock cart")
	}
	defer unlock()

	product, err := s.getProduct(ctx, op, productID)
	if err != nil {
		return nil, err
	}
	if available := product.AvailableStock(); quantity > available {
		return nil, domain.OutOfStock(op, max(available, 0))
	}

	cart, err := s.getCart(ctx, op, user.ID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		cart.Remove(productID)
	} else {
		cart.Replace(domain.NewCartItem(product, quantity))
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}

	return s.view(ctx, cart)
}

// RemoveItem deletes a product's line from the caller's cart.
func (s *cartService) RemoveItem(ctx context.Context, productID uuid.UUID) (*domain.CartView, error) {
	const op = "cart.remove_item"

	return s.mutate(ctx, op, func(cart *domain.Cart) {
		cart.Remove(productID)
	})
}

// Clear empties the caller's cart.
func (s *cartService) Clear(ctx context.Context) (*domain.CartView, error) {
	const op = "cart.clear"

	view, err := s.mutate(ctx, op, func(cart *domain.Cart) {
		cart.Clear()
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.CartCleared.Inc()
	}
	return view, nil
}

// mutate applies fn to the caller's existing cart under the cart lock and saves it.
func (s *cartService) mutate(ctx context.Context, op string, fn func(*domain.Cart)) (*domain.CartView, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(user.ID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to lock cart")
	}
	defer unlock()

	cart, err := s.getCart(ctx, op, user.ID)
	if err != nil {
		return nil, err
	}

	fn(cart)

	if err := s.save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}
	return s.view(ctx, cart)
}

func (s *cartService) getProduct(ctx context.Context, op string, productID uuid.UUID) (*domain.Product, error) {
	row, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}
	product := productFromRow(row)
	return &product, nil
}

func (s *cartService) getCart(ctx context.Context, op string, userID uuid.UUID) (*domain.Cart, error) {
	row, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrCartNotFound
		}
		return nil, domain.Internal(err, op, "failed to load cart")
	}
	cart, err := cartFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}
	return cart, nil
}

// save recalculates the total and persists the cart.
func (s *cartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.Recalculate()

	items, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}

	row, err := s.store.UpdateCart(ctx, repository.UpdateCartParams{
		ID:         cart.ID,
		Items:      items,
		TotalPrice: cart.TotalPrice,
	})
	if err != nil {
		return err
	}
	cart.UpdatedAt = row.UpdatedAt
	return nil
}

// view resolves each line's live product. Lines whose product has been
// deleted keep their snapshot with a nil product.
func (s *cartService) view(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	live := make(map[uuid.UUID]*domain.ProductSummary, len(ids))
	if len(ids) > 0 {
		rows, err := s.store.GetProductsByIDs(ctx, ids)
		if err != nil {
			return nil, domain.Internal(err, "cart.view", "failed to load cart products")
		}
		for _, row := range rows {
			p := productFromRow(row)
			live[p.ID] = p.Summary()
		}
	}

	lines := make([]domain.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.CartLine{CartItem: item, Product: live[item.ProductID]})
	}

	return &domain.CartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      lines,
		TotalPrice: cart.TotalPrice,
		UpdatedAt:  cart.UpdatedAt,
	}, nil
}
