package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/events"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/telemetry"
)

type orderService struct {
	store     repository.Store
	publisher events.Publisher
	now       func() time.Time
}

// NewOrderService creates a new OrderService instance
func NewOrderService(store repository.Store, publisher events.Publisher) domain.OrderService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &orderService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateOrder freezes the submitted items into a new order owned by the caller.
func (s *orderService) CreateOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.Order, error) {
	const op = "order.create"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(params.OrderItems))
	copy(items, params.OrderItems)
	for i := range items {
		if items[i].Unit == "" {
			items[i].Unit = domain.DefaultUnit
		}
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode order items")
	}
	addressJSON, err := json.Marshal(params.ShippingAddress)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode shipping address")
	}

	row, err := s.store.CreateOrder(ctx, repository.CreateOrderParams{
		UserID:          user.ID,
		OrderItems:      itemsJSON,
		ShippingAddress: addressJSON,
		PaymentMethod:   params.PaymentMethod,
		ItemsPrice:      params.ItemsPrice,
		TaxPrice:        params.TaxPrice,
		ShippingPrice:   params.ShippingPrice,
		TotalPrice:      params.TotalPrice,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create order")
	}

	order, err := orderFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode order")
	}
	order.User.Name = user.Name
	order.User.Email = user.Email

	if telemetry.Business != nil {
		telemetry.Business.OrdersCreated.WithLabelValues(order.PaymentMethod).Inc()
		telemetry.Business.OrderValue.Observe(order.TotalPrice.InexactFloat64())
		telemetry.Business.OrderItemCount.Observe(float64(len(order.OrderItems)))
	}

	publish(ctx, s.publisher, s.event(events.OrderCreated, order))
	return order, nil
}

// GetOrder returns an order with its owner's name and email.
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	const op = "order.get"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}

	order, err := orderWithUserFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode order")
	}
	if !user.CanAccess(order.User.ID) {
		return nil, domain.ErrNotOrderOwner
	}
	return order, nil
}

// ListMyOrders returns the caller's orders, newest first.
func (s *orderService) ListMyOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "order.list_mine"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order, err := orderFromRow(row)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to decode order")
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// ListOrders returns every order with owner details. Admin only.
func (s *orderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "order.list"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	rows, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order, err := orderWithUserFromRow(row)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to decode order")
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// MarkPaid records payment on an order the caller owns, or any order for admins.
func (s *orderService) MarkPaid(ctx context.Context, orderID uuid.UUID, result domain.PaymentResult) (*domain.Order, error) {
	const op = "order.mark_paid"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order, err := s.update(ctx, op, orderID, func(order *domain.Order) error {
		if !user.CanAccess(order.User.ID) {
			return domain.ErrNotOrderOwner
		}
		return order.MarkPaid(result.WithDefaults(now, user.Email), now)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.event(events.OrderPaid, order))
	return order, nil
}

// MarkDelivered sets the delivery flags. Admin only.
func (s *orderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	const op = "order.mark_delivered"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	order, err := s.update(ctx, op, orderID, func(order *domain.Order) error {
		return order.MarkDelivered(now)
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.OrdersDelivered.Inc()
	}
	publish(ctx, s.publisher, s.event(events.OrderDelivered, order))
	return order, nil
}

// SetStatus moves an order through the status graph. Admin only.
func (s *orderService) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error) {
	const op = "order.set_status"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order, err := s.update(ctx, op, orderID, func(order *domain.Order) error {
		return order.TransitionTo(next, now)
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.OrderStatusChanges.WithLabelValues(string(next)).Inc()
	}
	publish(ctx, s.publisher, s.event(events.OrderStatusChanged, order))
	return order, nil
}

// AssignDeliveryExecutive hands an order to a delivery executive. Admin only.
func (s *orderService) AssignDeliveryExecutive(ctx context.Context, orderID, executiveID uuid.UUID) (*domain.Order, error) {
	const op = "order.assign_executive"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if executiveID == uuid.Nil {
		return nil, domain.ErrExecutiveRequired
	}

	if _, err := s.store.GetUserByID(ctx, executiveID); err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound(op, "Delivery executive", executiveID.String())
		}
		return nil, domain.Internal(err, op, "failed to load delivery executive")
	}

	now := s.now()
	order, err := s.update(ctx, op, orderID, func(order *domain.Order) error {
		return order.AssignExecutive(executiveID, now)
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.OrderStatusChanges.WithLabelValues(string(order.OrderStatus)).Inc()
	}
	publish(ctx, s.publisher, s.event(events.OrderStatusChanged, order))
	return order, nil
}

// update locks the order row, applies fn and saves the result in one transaction.
func (s *orderService) update(ctx context.Context, op string, orderID uuid.UUID, fn func(*domain.Order) error) (*domain.Order, error) {
	var order *domain.Order

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		order, err = lockOrder(ctx, q, op, orderID)
		if err != nil {
			return err
		}
		if err := fn(order); err != nil {
			return err
		}
		return saveOrder(ctx, q, op, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) event(eventType string, order *domain.Order) events.Event {
	e := events.New(eventType, s.now(), order.User.ID, order.ID)
	e.Status = string(order.OrderStatus)
	total := order.TotalPrice
	e.Amount = &total
	return e
}

// lockOrder loads an order with a row lock. It must run inside a transaction.
func lockOrder(ctx context.Context, q repository.Querier, op string, orderID uuid.UUID) (*domain.Order, error) {
	row, err := q.GetOrderByIDForUpdate(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	order, err := orderFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode order")
	}
	return order, nil
}

func saveOrder(ctx context.Context, q repository.Querier, op string, order *domain.Order) error {
	params, err := orderUpdateParams(order)
	if err != nil {
		return domain.Internal(err, op, "failed to encode order")
	}
	row, err := q.UpdateOrder(ctx, params)
	if err != nil {
		return domain.Internal(err, op, "failed to save order")
	}
	order.UpdatedAt = row.UpdatedAt
	return nil
}
