package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/cart"
	"github.com/gemBekele/zeritu/internal/payment"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed client input, surfaced verbatim as a
// 400 response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Gateway is the remote payment provider as the lifecycle service sees
// it. Verify returns false (not an error) on provider-side ambiguity;
// both outcomes mean "try the next candidate reference".
type Gateway interface {
	Initialize(ctx context.Context, req payment.InitRequest) (payment.InitResult, error)
	Verify(ctx context.Context, txRef string) (bool, error)
}

// CartSnapshotter materializes a user's cart into priced lines.
type CartSnapshotter interface {
	Snapshot(ctx context.Context, userID string) ([]cart.Line, float64, error)
	Clear(ctx context.Context, userID string) error
}

// EventPublisher emits lifecycle events. Implementations must tolerate
// broker outages; publish failures never fail the request.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order)
	PublishPaymentSucceeded(ctx context.Context, o *Order)
	PublishPaymentFailed(ctx context.Context, o *Order, reason string)
}

// URLs configures where the payment provider sends the user and its
// webhook after checkout.
type URLs struct {
	Frontend string
	Backend  string
}

// Service is the order lifecycle controller: creation from a cart
// snapshot, payment initiation, and status reconciliation via webhook
// push or client polling.
type Service struct {
	repo      Repository
	carts     CartSnapshotter
	gateway   Gateway
	publisher EventPublisher
	urls      URLs
	logger    *zap.Logger
}

func NewService(repo Repository, carts CartSnapshotter, gateway Gateway, publisher EventPublisher, urls URLs, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		carts:     carts,
		gateway:   gateway,
		publisher: publisher,
		urls:      urls,
		logger:    logger,
	}
}

type CreateResult struct {
	Order      *Order
	PaymentURL string
	// InitFailed marks a persisted order whose payment setup failed. The
	// cart has been consumed; verification can be retried later.
	InitFailed bool
}

// Create materializes the caller's cart into a PENDING order and starts a
// payment transaction keyed by the order ID. A gateway failure does not
// roll the order back: losing the purchase intent is worse than a
// dangling unpaid order.
func (s *Service) Create(ctx context.Context, userID string, shipping ShippingInfo) (*CreateResult, error) {
	if err := validateShipping(shipping); err != nil {
		return nil, err
	}

	lines, total, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	o := &Order{
		UserID:   userID,
		Total:    total,
		Shipping: shipping,
	}
	for _, line := range lines {
		o.Items = append(o.Items, Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	first, last := splitName(shipping.Name)
	res, err := s.gateway.Initialize(ctx, payment.InitRequest{
		Amount:      total,
		Currency:    "ETB",
		Email:       shipping.Email,
		FirstName:   first,
		LastName:    last,
		PhoneNumber: shipping.Phone,
		TxRef:       o.ID,
		CallbackURL: s.urls.Backend + "/api/orders/webhook",
		ReturnURL:   fmt.Sprintf("%s/shop/checkout/success?orderId=%s", s.urls.Frontend, o.ID),
	})
	if err != nil {
		s.logger.Error("payment initialization failed",
			zap.String("order_id", o.ID), zap.Error(err))
		return &CreateResult{Order: o, InitFailed: true}, nil
	}

	if res.TxRef != "" {
		if err := s.repo.SetTxRef(ctx, o.ID, res.TxRef); err != nil {
			s.logger.Error("record tx_ref failed", zap.String("order_id", o.ID), zap.Error(err))
		} else {
			o.ChapaTxRef = &res.TxRef
		}
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// Stale cart is an accepted inconsistency; the order already exists.
		s.logger.Error("clear cart failed", zap.String("user_id", userID), zap.Error(err))
	}

	if s.publisher != nil {
		s.publisher.PublishOrderCreated(ctx, o)
	}

	return &CreateResult{Order: o, PaymentURL: res.CheckoutURL}, nil
}

// VerifyPayment reconciles payment state on demand. It is idempotent: a
// settled order short-circuits with updated=false. Otherwise each
// candidate reference is verified in turn; any verification error or
// negative result moves on to the next candidate.
func (s *Service) VerifyPayment(ctx context.Context, orderID, callerID string, callerIsAdmin bool) (*Order, bool, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o == nil {
		return nil, false, ErrNotFound
	}
	if o.UserID != callerID && !callerIsAdmin {
		return nil, false, ErrForbidden
	}

	if o.PaymentStatus == PaymentPaid {
		return o, false, nil
	}

	for _, txRef := range o.PaymentRefCandidates() {
		paid, err := s.gateway.Verify(ctx, txRef)
		if err != nil {
			s.logger.Warn("payment verification attempt failed",
				zap.String("order_id", o.ID), zap.String("tx_ref", txRef), zap.Error(err))
			continue
		}
		if !paid {
			continue
		}

		changed, err := s.repo.MarkPaid(ctx, o.ID)
		if err != nil {
			return nil, false, err
		}

		updated, err := s.repo.GetByID(ctx, o.ID)
		if err != nil {
			return nil, false, err
		}

		if changed && s.publisher != nil {
			s.publisher.PublishPaymentSucceeded(ctx, updated)
		}
		return updated, changed, nil
	}

	return o, false, nil
}

// HandleWebhook applies a provider notification. Delivery is at least
// once and payload shape varies; the conditional PAID transition makes
// repeats idempotent.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	n, err := payment.ParseWebhook(body)
	if err != nil {
		return err
	}

	o, err := s.lookupByRef(ctx, n.TxRef)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}

	switch n.Outcome {
	case payment.OutcomeSuccess:
		changed, err := s.repo.MarkPaid(ctx, o.ID)
		if err != nil {
			return err
		}
		s.logger.Info("webhook: payment confirmed",
			zap.String("order_id", o.ID), zap.Bool("changed", changed))
		if changed && s.publisher != nil {
			if updated, err := s.repo.GetByID(ctx, o.ID); err == nil && updated != nil {
				s.publisher.PublishPaymentSucceeded(ctx, updated)
			}
		}
	default:
		changed, err := s.repo.MarkPaymentFailed(ctx, o.ID)
		if err != nil {
			return err
		}
		s.logger.Info("webhook: payment failed",
			zap.String("order_id", o.ID), zap.String("status", n.RawStatus), zap.Bool("changed", changed))
		if changed && s.publisher != nil {
			s.publisher.PublishPaymentFailed(ctx, o, n.RawStatus)
		}
	}

	return nil
}

// lookupByRef mirrors the dual-reference resolution used for
// verification: a stored provider reference wins, the order ID is the
// fallback.
func (s *Service) lookupByRef(ctx context.Context, txRef string) (*Order, error) {
	o, err := s.repo.GetByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if o != nil {
		return o, nil
	}
	return s.repo.GetByID(ctx, txRef)
}

// UpdateStatus applies an administrative override. Only enum membership
// is validated; operators may force any state for remediation.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status *Status, paymentStatus *PaymentStatus, callerIsAdmin bool) (*Order, error) {
	if !callerIsAdmin {
		return nil, ErrForbidden
	}
	if status != nil && !ValidStatus(*status) {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid status %q", *status)}
	}
	if paymentStatus != nil && !ValidPaymentStatus(*paymentStatus) {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid paymentStatus %q", *paymentStatus)}
	}
	if status == nil && paymentStatus == nil {
		return nil, &ValidationError{Msg: "nothing to update"}
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status, paymentStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.repo.GetByID(ctx, orderID)
}

// Get returns an order visible to the caller.
func (s *Service) Get(ctx context.Context, orderID, callerID string, callerIsAdmin bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if o.UserID != callerID && !callerIsAdmin {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns the caller's orders; administrators see every order.
func (s *Service) List(ctx context.Context, callerID string, callerIsAdmin bool) ([]Order, error) {
	if callerIsAdmin {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByUser(ctx, callerID)
}

func validateShipping(sh ShippingInfo) error {
	if strings.TrimSpace(sh.Name) == "" {
		return &ValidationError{Msg: "shippingName is required"}
	}
	if _, err := mail.ParseAddress(sh.Email); err != nil {
		return &ValidationError{Msg: "shippingEmail is invalid"}
	}
	if strings.TrimSpace(sh.Phone) == "" {
		return &ValidationError{Msg: "shippingPhone is required"}
	}
	if strings.TrimSpace(sh.Address) == "" {
		return &ValidationError{Msg: "shippingAddress is required"}
	}
	return nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full, ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
