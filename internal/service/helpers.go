package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/events"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/telemetry"
)

// currentUser returns the authenticated caller.
func currentUser(ctx context.Context) (*domain.User, error) {
	user := domain.UserFromContext(ctx)
	if user == nil || user.ID == uuid.Nil {
		return nil, domain.ErrNotAuthenticated
	}
	return user, nil
}

// requireAdmin returns the caller if they are an admin.
func requireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domain.ErrNotAdmin
	}
	return user, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNoRows)
}

// publish sends event after the state change has committed. Failures are logged.
func publish(ctx context.Context, publisher events.Publisher, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event.Type).Msg("failed to publish event")
		if telemetry.Business != nil {
			telemetry.Business.EventsFailed.WithLabelValues(event.Type).Inc()
		}
		return
	}
	if telemetry.Business != nil {
		telemetry.Business.EventsPublished.WithLabelValues(event.Type).Inc()
	}
}

// =============================================================================
// pgtype conversions
// =============================================================================

func textToPgtype(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func uuidToPgtype(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: [16]byte(*id), Valid: true}
}

func pgtypeToUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func timeToPgtype(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func pgtypeToTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func intToPgtype(n *int) pgtype.Int4 {
	if n == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}
}

func pgtypeToInt(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func decimalToNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullToDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// =============================================================================
// Row mapping
// =============================================================================

func accountFromRow(u repository.User) domain.Account {
	return domain.Account{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         domain.Role(u.Role),
		Phone:        u.Phone.String,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func productFromRow(p repository.Product) domain.Product {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return domain.Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		DiscountPrice: nullToDecimal(p.DiscountPrice),
		Images:        images,
		Image:         p.Image,
		Category:      p.Category,
		SubCategory:   p.SubCategory,
		Brand:         p.Brand,
		CountInStock:  int(p.CountInStock),
		Stock:         pgtypeToInt(p.Stock),
		Unit:          p.Unit,
		IsAvailable:   p.IsAvailable,
		VendorID:      pgtypeToUUID(p.VendorID),
		Reviews:       []domain.Review{},
		Rating:        p.Rating,
		NumReviews:    int(p.NumReviews),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func reviewFromRow(r repository.ProductReview) domain.Review {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return domain.Review{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Name:      r.Name,
		Rating:    int(r.Rating),
		Comment:   r.Comment,
		Images:    images,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func cartFromRow(c repository.Cart) (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      []domain.CartItem{},
		TotalPrice: c.TotalPrice,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if len(c.Items) > 0 {
		if err := json.Unmarshal(c.Items, &cart.Items); err != nil {
			return nil, fmt.Errorf("failed to decode cart items: %w", err)
		}
	}
	return cart, nil
}

func orderFromRow(o repository.Order) (*domain.Order, error) {
	order := &domain.Order{
		ID:                 o.ID,
		User:               domain.OrderUser{ID: o.UserID},
		PaymentMethod:      o.PaymentMethod,
		ItemsPrice:         o.ItemsPrice,
		TaxPrice:           o.TaxPrice,
		ShippingPrice:      o.ShippingPrice,
		TotalPrice:         o.TotalPrice,
		IsPaid:             o.IsPaid,
		PaidAt:             pgtypeToTime(o.PaidAt),
		IsDelivered:        o.IsDelivered,
		DeliveredAt:        pgtypeToTime(o.DeliveredAt),
		ActualDeliveryTime: pgtypeToTime(o.ActualDeliveryTime),
		OrderStatus:        domain.OrderStatus(o.OrderStatus),
		DeliveryExecutive:  pgtypeToUUID(o.DeliveryExecutiveID),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}

	if err := json.Unmarshal(o.OrderItems, &order.OrderItems); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(o.ShippingAddress, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	if len(o.PaymentResult) > 0 && string(o.PaymentResult) != "null" {
		var result domain.PaymentResult
		if err := json.Unmarshal(o.PaymentResult, &result); err != nil {
			return nil, fmt.Errorf("failed to decode payment result: %w", err)
		}
		order.PaymentResult = &result
	}
	return order, nil
}

func orderWithUserFromRow(o repository.OrderWithUser) (*domain.Order, error) {
	order, err := orderFromRow(o.Order)
	if err != nil {
		return nil, err
	}
	order.User.Name = o.UserName
	order.User.Email = o.UserEmail
	return order, nil
}

// orderUpdateParams captures the mutable state of order for persistence.
func orderUpdateParams(order *domain.Order) (repository.UpdateOrderParams, error) {
	var paymentResult []byte
	if order.PaymentResult != nil {
		b, err := json.Marshal(order.PaymentResult)
		if err != nil {
			return repository.UpdateOrderParams{}, fmt.Errorf("failed to encode payment result: %w", err)
		}
		paymentResult = b
	}
	return repository.UpdateOrderParams{
		ID:                  order.ID,
		IsPaid:              order.IsPaid,
		PaidAt:              timeToPgtype(order.PaidAt),
		PaymentResult:       paymentResult,
		IsDelivered:         order.IsDelivered,
		DeliveredAt:         timeToPgtype(order.DeliveredAt),
		ActualDeliveryTime:  timeToPgtype(order.ActualDeliveryTime),
		OrderStatus:         string(order.OrderStatus),
		DeliveryExecutiveID: uuidToPgtype(order.DeliveryExecutive),
	}, nil
}

func paymentFromRow(p repository.Payment) (*domain.Payment, error) {
	payment := &domain.Payment{
		ID:            p.ID,
		UserID:        p.UserID,
		OrderID:       p.OrderID,
		PaymentMethod: domain.PaymentMethod(p.PaymentMethod),
		Amount:        p.Amount,
		Currency:      p.Currency,
		TransactionID: p.TransactionID,
		Status:        domain.PaymentStatus(p.Status),
		ErrorReason:   p.ErrorReason.String,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if len(p.GatewayResponse) > 0 {
		if err := json.Unmarshal(p.GatewayResponse, &payment.GatewayResponse); err != nil {
			return nil, fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return payment, nil
}

func paymentsFromRows(rows []repository.Payment) ([]domain.Payment, error) {
	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := paymentFromRow(row)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, nil
}
