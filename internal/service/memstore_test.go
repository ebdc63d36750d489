package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/repository"
)

// memStore is an in-memory repository.Store. ExecTx restores the previous
// state when fn fails, so tests can observe rollbacks.
type memStore struct {
	mu sync.Mutex

	users    map[uuid.UUID]repository.User
	products map[uuid.UUID]repository.Product
	reviews  map[uuid.UUID]repository.ProductReview
	carts    map[uuid.UUID]repository.Cart
	orders   map[uuid.UUID]repository.Order
	payments map[uuid.UUID]repository.Payment

	// failOn makes the named method return the error.
	failOn map[string]error

	clock time.Time
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]repository.User{},
		products: map[uuid.UUID]repository.Product{},
		reviews:  map[uuid.UUID]repository.ProductReview{},
		carts:    map[uuid.UUID]repository.Cart{},
		orders:   map[uuid.UUID]repository.Order{},
		payments: map[uuid.UUID]repository.Payment{},
		failOn:   map[string]error{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) fail(method string) error {
	return m.failOn[method]
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func (m *memStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	m.mu.Lock()
	users, products, reviews := cloneMap(m.users), cloneMap(m.products), cloneMap(m.reviews)
	carts, orders, payments := cloneMap(m.carts), cloneMap(m.orders), cloneMap(m.payments)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users, m.products, m.reviews = users, products, reviews
		m.carts, m.orders, m.payments = carts, orders, payments
		m.mu.Unlock()
		return err
	}
	return nil
}

// =============================================================================
// Users
// =============================================================================

func (m *memStore) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return repository.User{}, err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, arg.Email) {
			return repository.User{}, uniqueViolation()
		}
	}
	now := m.tick()
	u := repository.User{
		ID:           uuid.New(),
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		Phone:        arg.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.User{}, repository.ErrNoRows
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNoRows
}

func (m *memStore) ListUsers(ctx context.Context) ([]repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := mapValues(m.users)
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *memStore) UpdateUser(ctx context.Context, arg repository.UpdateUserParams) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[arg.ID]
	if !ok {
		return repository.User{}, repository.ErrNoRows
	}
	for _, other := range m.users {
		if other.ID != arg.ID && strings.EqualFold(other.Email, arg.Email) {
			return repository.User{}, uniqueViolation()
		}
	}
	u.Name, u.Email, u.PasswordHash, u.Phone = arg.Name, arg.Email, arg.PasswordHash, arg.Phone
	u.UpdatedAt = m.tick()
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == id {
			return &pgconn.PgError{Code: "23503"}
		}
	}
	delete(m.users, id)
	return nil
}

// =============================================================================
// Products
// =============================================================================

func (m *memStore) CreateProduct(ctx context.Context, arg repository.CreateProductParams) (repository.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	p := repository.Product{
		ID:            uuid.New(),
		Name:          arg.Name,
		Description:   arg.Description,
		Price:         arg.Price,
		DiscountPrice: arg.DiscountPrice,
		Images:        arg.Images,
		Category:      arg.Category,
		SubCategory:   arg.SubCategory,
		Brand:         arg.Brand,
		CountInStock:  arg.CountInStock,
		Stock:         arg.Stock,
		Unit:          arg.Unit,
		IsAvailable:   arg.IsAvailable,
		VendorID:      arg.VendorID,
		Rating:        decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.products[p.ID] = p
	return p, nil
}

// putProduct stores p as-is, for fixtures that need fields CreateProduct does not take.
func (m *memStore) putProduct(p repository.Product) repository.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := m.tick()
	p.CreatedAt, p.UpdatedAt = now, now
	m.products[p.ID] = p
	return p
}

func (m *memStore) GetProductByID(ctx context.Context, id uuid.UUID) (repository.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetProductByID"); err != nil {
		return repository.Product{}, err
	}
	p, ok := m.products[id]
	if !ok {
		return repository.Product{}, repository.ErrNoRows
	}
	return p, nil
}

func (m *memStore) GetProductByIDForUpdate(ctx context.Context, id uuid.UUID) (repository.Product, error) {
	return m.GetProductByID(ctx, id)
}

func (m *memStore) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]repository.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) matchProducts(keyword, category string) []repository.Product {
	var out []repository.Product
	for _, p := range m.products {
		if keyword != "" {
			k := strings.ToLower(keyword)
			if !strings.Contains(strings.ToLower(p.Name), k) && !strings.Contains(strings.ToLower(p.Description), k) {
				continue
			}
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListProducts(ctx context.Context, arg repository.ListProductsParams) ([]repository.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matchProducts(arg.Keyword, arg.Category)
	start := min(int(arg.Offset), len(all))
	end := min(start+int(arg.Limit), len(all))
	return all[start:end], nil
}

func (m *memStore) CountProducts(ctx context.Context, arg repository.CountProductsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matchProducts(arg.Keyword, arg.Category))), nil
}

func (m *memStore) UpdateProduct(ctx context.Context, arg repository.UpdateProductParams) (repository.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[arg.ID]
	if !ok {
		return repository.Product{}, repository.ErrNoRows
	}
	p.Name, p.Description, p.Price, p.DiscountPrice = arg.Name, arg.Description, arg.Price, arg.DiscountPrice
	p.Images, p.Category, p.SubCategory, p.Brand = arg.Images, arg.Category, arg.SubCategory, arg.Brand
	p.CountInStock, p.Stock, p.Unit, p.IsAvailable = arg.CountInStock, arg.Stock, arg.Unit, arg.IsAvailable
	p.UpdatedAt = m.tick()
	m.products[p.ID] = p
	return p, nil
}

func (m *memStore) UpdateProductRating(ctx context.Context, arg repository.UpdateProductRatingParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[arg.ID]
	if !ok {
		return repository.ErrNoRows
	}
	p.Rating, p.NumReviews = arg.Rating, arg.NumReviews
	m.products[p.ID] = p
	return nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	for rid, r := range m.reviews {
		if r.ProductID == id {
			delete(m.reviews, rid)
		}
	}
	return nil
}

// =============================================================================
// Reviews
// =============================================================================

func (m *memStore) CreateReview(ctx context.Context, arg repository.CreateReviewParams) (repository.ProductReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ProductID == arg.ProductID && r.UserID == arg.UserID {
			return repository.ProductReview{}, uniqueViolation()
		}
	}
	now := m.tick()
	r := repository.ProductReview{
		ID:        uuid.New(),
		ProductID: arg.ProductID,
		UserID:    arg.UserID,
		Name:      arg.Name,
		Rating:    arg.Rating,
		Comment:   arg.Comment,
		Images:    arg.Images,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.reviews[r.ID] = r
	return r, nil
}

func (m *memStore) GetReview(ctx context.Context, arg repository.GetReviewParams) (repository.ProductReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[arg.ID]
	if !ok || r.ProductID != arg.ProductID {
		return repository.ProductReview{}, repository.ErrNoRows
	}
	return r, nil
}

func (m *memStore) GetReviewByUser(ctx context.Context, arg repository.GetReviewByUserParams) (repository.ProductReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ProductID == arg.ProductID && r.UserID == arg.UserID {
			return r, nil
		}
	}
	return repository.ProductReview{}, repository.ErrNoRows
}

func (m *memStore) ListReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]repository.ProductReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ProductReview
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateReview(ctx context.Context, arg repository.UpdateReviewParams) (repository.ProductReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[arg.ID]
	if !ok {
		return repository.ProductReview{}, repository.ErrNoRows
	}
	r.Rating, r.Comment, r.Images = arg.Rating, arg.Comment, arg.Images
	r.UpdatedAt = m.tick()
	m.reviews[r.ID] = r
	return r, nil
}

func (m *memStore) DeleteReview(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reviews, id)
	return nil
}

// =============================================================================
// Carts
// =============================================================================

func (m *memStore) cartByUser(userID uuid.UUID) (repository.Cart, bool) {
	for _, c := range m.carts {
		if c.UserID == userID {
			return c, true
		}
	}
	return repository.Cart{}, false
}

func (m *memStore) EnsureCart(ctx context.Context, userID uuid.UUID) (repository.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cartByUser(userID); ok {
		return c, nil
	}
	now := m.tick()
	c := repository.Cart{
		ID:         uuid.New(),
		UserID:     userID,
		Items:      []byte("[]"),
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.carts[c.ID] = c
	return c, nil
}

func (m *memStore) GetCartByUserID(ctx context.Context, userID uuid.UUID) (repository.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cartByUser(userID); ok {
		return c, nil
	}
	return repository.Cart{}, repository.ErrNoRows
}

func (m *memStore) UpdateCart(ctx context.Context, arg repository.UpdateCartParams) (repository.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateCart"); err != nil {
		return repository.Cart{}, err
	}
	c, ok := m.carts[arg.ID]
	if !ok {
		return repository.Cart{}, repository.ErrNoRows
	}
	c.Items, c.TotalPrice = arg.Items, arg.TotalPrice
	c.UpdatedAt = m.tick()
	m.carts[c.ID] = c
	return c, nil
}

// =============================================================================
// Orders
// =============================================================================

func (m *memStore) CreateOrder(ctx context.Context, arg repository.CreateOrderParams) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrder"); err != nil {
		return repository.Order{}, err
	}
	now := m.tick()
	o := repository.Order{
		ID:              uuid.New(),
		UserID:          arg.UserID,
		OrderItems:      arg.OrderItems,
		ShippingAddress: arg.ShippingAddress,
		PaymentMethod:   arg.PaymentMethod,
		ItemsPrice:      arg.ItemsPrice,
		TaxPrice:        arg.TaxPrice,
		ShippingPrice:   arg.ShippingPrice,
		TotalPrice:      arg.TotalPrice,
		OrderStatus:     "Processing",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) withUser(o repository.Order) repository.OrderWithUser {
	u := m.users[o.UserID]
	return repository.OrderWithUser{Order: o, UserName: u.Name, UserEmail: u.Email}
}

func (m *memStore) GetOrderByID(ctx context.Context, id uuid.UUID) (repository.OrderWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.OrderWithUser{}, repository.ErrNoRows
	}
	return m.withUser(o), nil
}

func (m *memStore) GetOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.Order{}, repository.ErrNoRows
	}
	return o, nil
}

func (m *memStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListOrders(ctx context.Context) ([]repository.OrderWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.OrderWithUser
	for _, o := range m.orders {
		out = append(out, m.withUser(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateOrder(ctx context.Context, arg repository.UpdateOrderParams) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateOrder"); err != nil {
		return repository.Order{}, err
	}
	o, ok := m.orders[arg.ID]
	if !ok {
		return repository.Order{}, repository.ErrNoRows
	}
	o.IsPaid, o.PaidAt, o.PaymentResult = arg.IsPaid, arg.PaidAt, arg.PaymentResult
	o.IsDelivered, o.DeliveredAt, o.ActualDeliveryTime = arg.IsDelivered, arg.DeliveredAt, arg.ActualDeliveryTime
	o.OrderStatus, o.DeliveryExecutiveID = arg.OrderStatus, arg.DeliveryExecutiveID
	o.UpdatedAt = m.tick()
	m.orders[o.ID] = o
	return o, nil
}

// =============================================================================
// Payments
// =============================================================================

func isLive(status string) bool {
	return status == "pending" || status == "completed"
}

func (m *memStore) CreatePayment(ctx context.Context, arg repository.CreatePaymentParams) (repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == arg.TransactionID || (p.OrderID == arg.OrderID && isLive(p.Status) && isLive(arg.Status)) {
			return repository.Payment{}, uniqueViolation()
		}
	}
	now := m.tick()
	p := repository.Payment{
		ID:              uuid.New(),
		UserID:          arg.UserID,
		OrderID:         arg.OrderID,
		PaymentMethod:   arg.PaymentMethod,
		Amount:          arg.Amount,
		Currency:        arg.Currency,
		TransactionID:   arg.TransactionID,
		Status:          arg.Status,
		GatewayResponse: arg.GatewayResponse,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *memStore) GetPaymentByID(ctx context.Context, id uuid.UUID) (repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return repository.Payment{}, repository.ErrNoRows
	}
	return p, nil
}

func (m *memStore) GetPaymentByIDForUpdate(ctx context.Context, id uuid.UUID) (repository.Payment, error) {
	return m.GetPaymentByID(ctx, id)
}

func (m *memStore) GetPaymentByTransactionID(ctx context.Context, transactionID string) (repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	return repository.Payment{}, repository.ErrNoRows
}

func (m *memStore) GetPaymentByTransactionIDForUpdate(ctx context.Context, transactionID string) (repository.Payment, error) {
	return m.GetPaymentByTransactionID(ctx, transactionID)
}

func (m *memStore) GetLivePaymentByOrderID(ctx context.Context, orderID uuid.UUID) (repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID && isLive(p.Status) {
			return p, nil
		}
	}
	return repository.Payment{}, repository.ErrNoRows
}

func (m *memStore) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListPayments(ctx context.Context) ([]repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := mapValues(m.payments)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdatePayment(ctx context.Context, arg repository.UpdatePaymentParams) (repository.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdatePayment"); err != nil {
		return repository.Payment{}, err
	}
	p, ok := m.payments[arg.ID]
	if !ok {
		return repository.Payment{}, repository.ErrNoRows
	}
	p.Status, p.GatewayResponse, p.ErrorReason = arg.Status, arg.GatewayResponse, arg.ErrorReason
	p.UpdatedAt = m.tick()
	m.payments[p.ID] = p
	return p, nil
}

// cloneMap and mapValues stand in for maps.Clone and
// slices.Collect(maps.Values(...)), which need a newer Go release.
func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	if src == nil {
		return nil
	}
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mapValues[K comparable, V any](src map[K]V) []V {
	var out []V
	for _, v := range src {
		out = append(out, v)
	}
	return out
}
