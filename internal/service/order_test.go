package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/events"
	"github.com/dukerupert/basket/internal/repository"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type orderFixture struct {
	store    *memStore
	svc      *orderService
	recorder *events.Recorder
	customer *domain.User
	other    *domain.User
	admin    *domain.User
	product  repository.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := newMemStore()
	recorder := &events.Recorder{}
	svc := NewOrderService(store, recorder).(*orderService)
	svc.now = func() time.Time { return fixedNow }

	return &orderFixture{
		store:    store,
		svc:      svc,
		recorder: recorder,
		customer: seedUser(t, store, "ravi", domain.RoleUser),
		other:    seedUser(t, store, "meera", domain.RoleUser),
		admin:    seedUser(t, store, "admin", domain.RoleAdmin),
		product:  seedProduct(t, store, "mangoes", "100", 20),
	}
}

func (f *orderFixture) placeOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(asUser(f.customer), orderParams(f.product, 2))
	require.NoError(t, err)
	return order
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newOrderFixture(t)

	order := f.placeOrder(t)

	assert.Equal(t, domain.OrderStatusProcessing, order.OrderStatus)
	assert.Equal(t, f.customer.ID, order.User.ID)
	assert.Equal(t, f.customer.Email, order.User.Email)
	assert.False(t, order.IsPaid)
	assert.False(t, order.IsDelivered)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, domain.DefaultUnit, order.OrderItems[0].Unit)
	assert.True(t, decimal.RequireFromString("200").Equal(order.ItemsPrice))
	assert.True(t, decimal.RequireFromString("236").Equal(order.TotalPrice))
	assert.Equal(t, []string{events.OrderCreated}, f.recorder.Types())
}

func TestOrderService_CreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)

	tests := []struct {
		name   string
		mutate func(*domain.CreateOrderParams)
		want   error
	}{
		{
			name:   "no items",
			mutate: func(p *domain.CreateOrderParams) { p.OrderItems = nil },
			want:   domain.ErrNoOrderItems,
		},
		{
			name:   "empty item list",
			mutate: func(p *domain.CreateOrderParams) { p.OrderItems = []domain.OrderItem{} },
			want:   domain.ErrNoOrderItems,
		},
		{
			name:   "zero quantity",
			mutate: func(p *domain.CreateOrderParams) { p.OrderItems[0].Qty = 0 },
		},
		{
			name:   "missing city",
			mutate: func(p *domain.CreateOrderParams) { p.ShippingAddress.City = "" },
		},
		{
			name:   "unknown payment method",
			mutate: func(p *domain.CreateOrderParams) { p.PaymentMethod = "Barter" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := orderParams(f.product, 1)
			tt.mutate(&params)

			_, err := f.svc.CreateOrder(asUser(f.customer), params)
			requireCode(t, err, domain.EINVALID)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.recorder.Events)
}

func TestOrderService_SnapshotSurvivesCatalogChanges(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	p := f.store.products[f.product.ID]
	p.Price = decimal.RequireFromString("999")
	p.Name = "renamed"
	f.store.products[p.ID] = p

	got, err := f.svc.GetOrder(asUser(f.customer), order.ID)
	require.NoError(t, err)
	require.Len(t, got.OrderItems, 1)
	assert.Equal(t, "mangoes", got.OrderItems[0].Name)
	assert.True(t, decimal.RequireFromString("100").Equal(got.OrderItems[0].Price))
	assert.True(t, decimal.RequireFromString("236").Equal(got.TotalPrice))
}

func TestOrderService_GetOrderAccess(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	got, err := f.svc.GetOrder(asUser(f.customer), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ravi", got.User.Name)
	assert.Equal(t, "ravi@example.com", got.User.Email)

	_, err = f.svc.GetOrder(asUser(f.admin), order.ID)
	require.NoError(t, err)

	_, err = f.svc.GetOrder(asUser(f.other), order.ID)
	assert.ErrorIs(t, err, domain.ErrNotOrderOwner)

	_, err = f.svc.GetOrder(asUser(f.customer), uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.svc.GetOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestOrderService_Listing(t *testing.T) {
	f := newOrderFixture(t)
	first := f.placeOrder(t)
	second := f.placeOrder(t)
	_, err := f.svc.CreateOrder(asUser(f.other), orderParams(f.product, 1))
	require.NoError(t, err)

	mine, err := f.svc.ListMyOrders(asUser(f.customer))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	all, err := f.svc.ListOrders(asUser(f.admin))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.ListOrders(asUser(f.customer))
	assert.ErrorIs(t, err, domain.ErrNotAdmin)
}

func TestOrderService_MarkPaidDefaults(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)
	f.recorder.Events = nil

	paid, err := f.svc.MarkPaid(asUser(f.customer), order.ID, domain.PaymentResult{})
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, fixedNow.Equal(*paid.PaidAt))
	require.NotNil(t, paid.PaymentResult)
	assert.Equal(t, domain.PaymentResult{
		ID:            domain.DefaultPaymentResultID,
		Status:        domain.DefaultPaymentResultStatus,
		UpdateTime:    "2025-03-14T09:30:00Z",
		PaymentMethod: domain.OrderPaymentCOD,
		EmailAddress:  "ravi@example.com",
	}, *paid.PaymentResult)
	assert.Equal(t, domain.OrderStatusProcessing, paid.OrderStatus)
	assert.Equal(t, []string{events.OrderPaid}, f.recorder.Types())

	stored, err := f.svc.GetOrder(asUser(f.customer), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, "ravi@example.com", stored.PaymentResult.EmailAddress)
}

func TestOrderService_MarkPaidRules(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	_, err := f.svc.MarkPaid(asUser(f.other), order.ID, domain.PaymentResult{})
	assert.ErrorIs(t, err, domain.ErrNotOrderOwner)

	paid, err := f.svc.MarkPaid(asUser(f.admin), order.ID, domain.PaymentResult{ID: "pay_1", Status: "COMPLETED"})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", paid.PaymentResult.ID)
	assert.Equal(t, "admin@example.com", paid.PaymentResult.EmailAddress)

	_, err = f.svc.MarkPaid(asUser(f.customer), order.ID, domain.PaymentResult{})
	requireCode(t, err, domain.EALREADYVERIFIED)

	_, err = f.svc.MarkPaid(asUser(f.customer), uuid.New(), domain.PaymentResult{})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderService_MarkDelivered(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	_, err := f.svc.MarkDelivered(asUser(f.customer), order.ID)
	assert.ErrorIs(t, err, domain.ErrNotAdmin)

	delivered, err := f.svc.MarkDelivered(asUser(f.admin), order.ID)
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, domain.OrderStatusProcessing, delivered.OrderStatus)

	_, err = f.svc.MarkDelivered(asUser(f.admin), order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderAlreadyDelivered)
}

func TestOrderService_SetStatus(t *testing.T) {
	f := newOrderFixture(t)
	admin := asUser(f.admin)

	tests := []struct {
		name     string
		path     []string
		wantErr  string
		wantLast domain.OrderStatus
	}{
		{
			name:     "processing to confirmed",
			path:     []string{"Confirmed"},
			wantLast: domain.OrderStatusConfirmed,
		},
		{
			name:     "skip straight to delivered",
			path:     []string{"Delivered"},
			wantLast: domain.OrderStatusDelivered,
		},
		{
			name:     "full walk",
			path:     []string{"Confirmed", "Out for Delivery", "Delivered"},
			wantLast: domain.OrderStatusDelivered,
		},
		{
			name:    "delivered is terminal",
			path:    []string{"Delivered", "Processing"},
			wantErr: domain.EINVALID,
		},
		{
			name:    "no going back",
			path:    []string{"Out for Delivery", "Confirmed"},
			wantErr: domain.EINVALID,
		},
		{
			name:    "unknown status",
			path:    []string{"Shipped"},
			wantErr: domain.EINVALID,
		},
		{
			name:    "empty status",
			path:    []string{""},
			wantErr: domain.EINVALID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := f.placeOrder(t)

			var (
				got *domain.Order
				err error
			)
			for _, status := range tt.path {
				got, err = f.svc.SetStatus(admin, order.ID, status)
				if err != nil {
					break
				}
			}

			if tt.wantErr != "" {
				requireCode(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLast, got.OrderStatus)
			if tt.wantLast == domain.OrderStatusDelivered {
				assert.True(t, got.IsDelivered)
				assert.NotNil(t, got.ActualDeliveryTime)
			}
		})
	}
}

func TestOrderService_SetStatusRejectedLeavesOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	_, err := f.svc.SetStatus(asUser(f.admin), order.ID, "Delivered")
	require.NoError(t, err)
	_, err = f.svc.SetStatus(asUser(f.admin), order.ID, "Processing")
	requireCode(t, err, domain.EINVALID)

	got, err := f.svc.GetOrder(asUser(f.admin), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, got.OrderStatus)

	_, err = f.svc.SetStatus(asUser(f.customer), order.ID, "Delivered")
	assert.ErrorIs(t, err, domain.ErrNotAdmin)
}

func TestOrderService_AssignDeliveryExecutive(t *testing.T) {
	f := newOrderFixture(t)
	admin := asUser(f.admin)
	courier := seedUser(t, f.store, "courier", domain.RoleDelivery)
	order := f.placeOrder(t)

	_, err := f.svc.AssignDeliveryExecutive(admin, order.ID, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrExecutiveRequired)

	_, err = f.svc.AssignDeliveryExecutive(admin, order.ID, uuid.New())
	requireCode(t, err, domain.ENOTFOUND)

	_, err = f.svc.AssignDeliveryExecutive(asUser(f.customer), order.ID, courier.ID)
	assert.ErrorIs(t, err, domain.ErrNotAdmin)

	assigned, err := f.svc.AssignDeliveryExecutive(admin, order.ID, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOutForDelivery, assigned.OrderStatus)
	require.NotNil(t, assigned.DeliveryExecutive)
	assert.Equal(t, courier.ID, *assigned.DeliveryExecutive)

	_, err = f.svc.SetStatus(admin, order.ID, "Delivered")
	require.NoError(t, err)
	_, err = f.svc.AssignDeliveryExecutive(admin, order.ID, courier.ID)
	requireCode(t, err, domain.EINVALID)
}
