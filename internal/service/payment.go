package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/basket/internal/billing"
	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/events"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/telemetry"
)

// forcedGateway labels outcomes supplied by the caller instead of the gateway.
const forcedGateway = "forced"

type paymentService struct {
	store     repository.Store
	gateway   billing.Gateway
	publisher events.Publisher
	currency  string
	now       func() time.Time
	entropy   io.Reader
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(store repository.Store, gateway billing.Gateway, publisher events.Publisher, currency string) domain.PaymentService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &paymentService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		currency:  currency,
		now:       time.Now,
	}
}

// Initiate opens a pending payment for an order.
func (s *paymentService) Initiate(ctx context.Context, params domain.InitiatePaymentParams) (*domain.InitiatedPayment, error) {
	const op = "payment.initiate"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	orderRow, err := s.store.GetOrderByID(ctx, params.OrderID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	if !user.CanAccess(orderRow.UserID) {
		return nil, domain.ErrNotOrderOwner
	}

	// Duplicates are rejected before the gateway is contacted.
	if err := checkNoLivePayment(ctx, s.store, op, params.OrderID); err != nil {
		return nil, err
	}

	now := s.now()
	txnID, err := domain.NewTransactionID(now, s.entropy)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate transaction id")
	}

	start := time.Now()
	session, err := s.gateway.Initiate(ctx, billing.InitiateParams{
		TransactionID: txnID,
		OrderID:       params.OrderID.String(),
		Amount:        params.Amount,
		Currency:      s.currency,
		Method:        string(params.PaymentMethod),
		CustomerEmail: user.Email,
	})
	s.observeGateway("initiate", start)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "Payment gateway unavailable")
	}

	gatewayJSON, err := json.Marshal(domain.GatewayResponse{
		ID:                    session.GatewayID,
		MerchantID:            session.MerchantID,
		MerchantTransactionID: session.MerchantTransactionID,
		Status:                session.Status,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode gateway response")
	}

	var row repository.Payment
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		// The order row lock serializes concurrent initiations for one order.
		if _, err := q.GetOrderByIDForUpdate(ctx, params.OrderID); err != nil {
			if isNotFound(err) {
				return domain.ErrOrderNotFound
			}
			return domain.Internal(err, op, "failed to lock order")
		}
		if err := checkNoLivePayment(ctx, q, op, params.OrderID); err != nil {
			return err
		}

		row, err = q.CreatePayment(ctx, repository.CreatePaymentParams{
			UserID:          user.ID,
			OrderID:         params.OrderID,
			PaymentMethod:   string(params.PaymentMethod),
			Amount:          params.Amount,
			Currency:        s.currency,
			TransactionID:   txnID,
			Status:          string(domain.PaymentStatusPending),
			GatewayResponse: gatewayJSON,
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return domain.ErrPaymentAlreadyInitiated
			}
			return domain.Internal(err, op, "failed to create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.PaymentsInitiated.WithLabelValues(string(params.PaymentMethod)).Inc()
	}

	e := events.New(events.PaymentInitiated, now, user.ID, params.OrderID)
	e.PaymentID = &row.ID
	e.Status = row.Status
	e.Amount = &row.Amount
	publish(ctx, s.publisher, e)

	return &domain.InitiatedPayment{
		ID:            row.ID,
		TransactionID: row.TransactionID,
		Amount:        row.Amount,
		PaymentMethod: domain.PaymentMethod(row.PaymentMethod),
		Status:        domain.PaymentStatus(row.Status),
		RedirectURL:   domain.RedirectURL(row.TransactionID),
	}, nil
}

// Verify resolves a pending payment. A completed payment marks its order paid
// in the same transaction.
func (s *paymentService) Verify(ctx context.Context, params domain.VerifyPaymentParams) (*domain.Payment, error) {
	const op = "payment.verify"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if params.TransactionID == "" {
		return nil, domain.ErrMissingTransactionID
	}

	row, err := s.store.GetPaymentByTransactionID(ctx, params.TransactionID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, op, "failed to load payment")
	}
	current, err := paymentFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode payment")
	}
	if !user.CanAccess(current.UserID) {
		return nil, domain.ErrNotPaymentOwner
	}
	if current.Status != domain.PaymentStatusPending {
		return nil, domain.ErrPaymentAlreadyVerified
	}

	outcome, gatewayName, err := s.resolve(ctx, op, current, params.PaymentStatus)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		payment    *domain.Payment
		order      *domain.Order
		markedPaid bool
	)
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetPaymentByTransactionIDForUpdate(ctx, params.TransactionID)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrPaymentNotFound
			}
			return domain.Internal(err, op, "failed to lock payment")
		}
		payment, err = paymentFromRow(row)
		if err != nil {
			return domain.Internal(err, op, "failed to decode payment")
		}

		if err := payment.Resolve(outcome.status, outcome.gatewayID); err != nil {
			return err
		}
		if outcome.status == domain.PaymentStatusFailed && outcome.reason != "" {
			payment.ErrorReason = outcome.reason
		}
		if err := savePayment(ctx, q, op, payment); err != nil {
			return err
		}

		if outcome.status != domain.PaymentStatusCompleted {
			return nil
		}

		order, err = lockOrder(ctx, q, op, payment.OrderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return nil
		}

		result := domain.PaymentResult{
			ID:            payment.TransactionID,
			Status:        payment.GatewayResponse.Status,
			PaymentMethod: string(payment.PaymentMethod),
		}.WithDefaults(now, user.Email)
		if err := order.MarkPaid(result, now); err != nil {
			return err
		}
		if order.OrderStatus.CanTransitionTo(domain.OrderStatusConfirmed) {
			if err := order.TransitionTo(domain.OrderStatusConfirmed, now); err != nil {
				return err
			}
		}
		markedPaid = true
		return saveOrder(ctx, q, op, order)
	})
	if err != nil {
		return nil, err
	}

	payment.Order = order
	s.recordOutcome(ctx, gatewayName, payment, order, markedPaid)
	return payment, nil
}

type resolvedOutcome struct {
	status    domain.PaymentStatus
	gatewayID string
	reason    string
}

// resolve decides the payment outcome, either forced by the caller or from the gateway.
func (s *paymentService) resolve(ctx context.Context, op string, payment *domain.Payment, forced string) (resolvedOutcome, string, error) {
	if forced != "" {
		status, err := domain.ParsePaymentStatus(strings.ToLower(forced))
		if err != nil {
			return resolvedOutcome{}, "", err
		}
		if status != domain.PaymentStatusCompleted && status != domain.PaymentStatusFailed {
			return resolvedOutcome{}, "", domain.Invalid(op, "Payment status must be completed or failed")
		}
		return resolvedOutcome{status: status}, forcedGateway, nil
	}

	start := time.Now()
	out, err := s.gateway.Resolve(ctx, billing.ResolveParams{
		TransactionID: payment.TransactionID,
		GatewayID:     payment.GatewayResponse.ID,
	})
	s.observeGateway("resolve", start)
	if err != nil {
		return resolvedOutcome{}, "", domain.WrapError(err, domain.EINTERNAL, op, "Payment gateway unavailable")
	}

	switch out.Status {
	case billing.StatusSucceeded:
		return resolvedOutcome{status: domain.PaymentStatusCompleted, gatewayID: out.GatewayID}, s.gateway.Name(), nil
	case billing.StatusFailed:
		return resolvedOutcome{status: domain.PaymentStatusFailed, gatewayID: out.GatewayID, reason: out.Reason}, s.gateway.Name(), nil
	default:
		return resolvedOutcome{}, "", ErrPaymentProcessing
	}
}

func (s *paymentService) recordOutcome(ctx context.Context, gatewayName string, payment *domain.Payment, order *domain.Order, markedPaid bool) {
	zerolog.Ctx(ctx).Info().
		Str("transaction_id", payment.TransactionID).
		Str("status", string(payment.Status)).
		Str("gateway", gatewayName).
		Msg("payment resolved")

	if telemetry.Business != nil {
		telemetry.Business.PaymentsResolved.WithLabelValues(gatewayName, string(payment.Status)).Inc()
		if payment.Status == domain.PaymentStatusCompleted {
			telemetry.Business.RevenueCollected.WithLabelValues(payment.Currency).Add(payment.Amount.InexactFloat64())
		}
	}

	eventType := events.PaymentFailed
	if payment.Status == domain.PaymentStatusCompleted {
		eventType = events.PaymentCompleted
	}
	publish(ctx, s.publisher, s.paymentEvent(eventType, payment))

	if markedPaid && order != nil {
		e := events.New(events.OrderPaid, s.now(), order.User.ID, order.ID)
		e.PaymentID = &payment.ID
		e.Status = string(order.OrderStatus)
		publish(ctx, s.publisher, e)
	}
}

// GetPayment returns a payment with its order.
func (s *paymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	const op = "payment.get"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, op, "failed to load payment")
	}
	payment, err := paymentFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode payment")
	}
	if !user.CanAccess(payment.UserID) {
		return nil, domain.ErrNotPaymentOwner
	}

	orderRow, err := s.store.GetOrderByID(ctx, payment.OrderID)
	switch {
	case err == nil:
		if payment.Order, err = orderWithUserFromRow(orderRow); err != nil {
			return nil, domain.Internal(err, op, "failed to decode order")
		}
	case !isNotFound(err):
		return nil, domain.Internal(err, op, "failed to load order")
	}
	return payment, nil
}

// GetStatus looks up a payment by its transaction id.
func (s *paymentService) GetStatus(ctx context.Context, transactionID string) (*domain.Payment, error) {
	const op = "payment.status"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if transactionID == "" {
		return nil, domain.ErrMissingTransactionID
	}

	row, err := s.store.GetPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, op, "failed to load payment")
	}
	payment, err := paymentFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode payment")
	}
	if !user.CanAccess(payment.UserID) {
		return nil, domain.ErrNotPaymentOwner
	}
	return payment, nil
}

// ListMyPayments returns the caller's payments, newest first.
func (s *paymentService) ListMyPayments(ctx context.Context) ([]domain.Payment, error) {
	const op = "payment.list_mine"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListPaymentsByUser(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list payments")
	}
	payments, err := paymentsFromRows(rows)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode payments")
	}
	return payments, nil
}

// ListPayments returns every payment. Admin only.
func (s *paymentService) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	const op = "payment.list"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	rows, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list payments")
	}
	payments, err := paymentsFromRows(rows)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode payments")
	}
	return payments, nil
}

// UpdateStatus forces a payment status change. A move to completed marks the
// order paid but leaves its status alone. Admin only.
func (s *paymentService) UpdateStatus(ctx context.Context, paymentID uuid.UUID, status string) (*domain.Payment, error) {
	const op = "payment.update_status"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if status == "" {
		return nil, domain.ErrStatusRequired
	}
	next, err := domain.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var payment *domain.Payment
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetPaymentByIDForUpdate(ctx, paymentID)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrPaymentNotFound
			}
			return domain.Internal(err, op, "failed to lock payment")
		}
		payment, err = paymentFromRow(row)
		if err != nil {
			return domain.Internal(err, op, "failed to decode payment")
		}

		if err := payment.TransitionTo(next); err != nil {
			return err
		}
		if err := savePayment(ctx, q, op, payment); err != nil {
			return err
		}

		if next != domain.PaymentStatusCompleted {
			return nil
		}

		order, err := lockOrder(ctx, q, op, payment.OrderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return nil
		}
		order.IsPaid = true
		order.PaidAt = &now
		return saveOrder(ctx, q, op, order)
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.PaymentsResolved.WithLabelValues(forcedGateway, string(payment.Status)).Inc()
	}
	switch payment.Status {
	case domain.PaymentStatusCompleted:
		publish(ctx, s.publisher, s.paymentEvent(events.PaymentCompleted, payment))
	case domain.PaymentStatusFailed:
		publish(ctx, s.publisher, s.paymentEvent(events.PaymentFailed, payment))
	}
	return payment, nil
}

func (s *paymentService) paymentEvent(eventType string, payment *domain.Payment) events.Event {
	e := events.New(eventType, s.now(), payment.UserID, payment.OrderID)
	e.PaymentID = &payment.ID
	e.Status = string(payment.Status)
	amount := payment.Amount
	e.Amount = &amount
	return e
}

func (s *paymentService) observeGateway(operation string, start time.Time) {
	if telemetry.Business != nil {
		telemetry.Business.GatewayLatency.WithLabelValues(s.gateway.Name(), operation).Observe(time.Since(start).Seconds())
	}
}

// checkNoLivePayment rejects a second pending or completed payment for an order.
func checkNoLivePayment(ctx context.Context, q repository.Querier, op string, orderID uuid.UUID) error {
	_, err := q.GetLivePaymentByOrderID(ctx, orderID)
	switch {
	case err == nil:
		return domain.ErrPaymentAlreadyInitiated
	case isNotFound(err):
		return nil
	default:
		return domain.Internal(err, op, "failed to check existing payments")
	}
}

func savePayment(ctx context.Context, q repository.Querier, op string, payment *domain.Payment) error {
	gatewayJSON, err := json.Marshal(payment.GatewayResponse)
	if err != nil {
		return domain.Internal(err, op, "failed to encode gateway response")
	}
	row, err := q.UpdatePayment(ctx, repository.UpdatePaymentParams{
		ID:              payment.ID,
		Status:          string(payment.Status),
		GatewayResponse: gatewayJSON,
		ErrorReason:     textToPgtype(payment.ErrorReason),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to save payment")
	}
	payment.UpdatedAt = row.UpdatedAt
	return nil
}
