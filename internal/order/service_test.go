package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/cart"
	"github.com/gemBekele/zeritu/internal/payment"
)

// memRepo is an in-memory Repository with the same conditional-update
// semantics as the Postgres implementation.
type memRepo struct {
	orders map[string]*Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*Order{}}
}

func (m *memRepo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = "order-" + string(rune('a'+len(m.orders)))
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	copied := *o
	m.orders[o.ID] = &copied
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (m *memRepo) GetByTxRef(ctx context.Context, txRef string) (*Order, error) {
	for _, o := range m.orders {
		if o.ChapaTxRef != nil && *o.ChapaTxRef == txRef {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memRepo) ListAll(ctx context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memRepo) SetTxRef(ctx context.Context, orderID, txRef string) error {
	o, ok := m.orders[orderID]
	if !ok {
		return errors.New("no such order")
	}
	o.ChapaTxRef = &txRef
	return nil
}

func (m *memRepo) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus == PaymentPaid {
		return false, nil
	}
	o.PaymentStatus = PaymentPaid
	o.Status = StatusConfirmed
	return true, nil
}

func (m *memRepo) MarkPaymentFailed(ctx context.Context, orderID string) (bool, error) {
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus == PaymentPaid {
		return false, nil
	}
	o.PaymentStatus = PaymentFailed
	return true, nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, orderID string, status *Status, paymentStatus *PaymentStatus) error {
	o, ok := m.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	if status != nil {
		o.Status = *status
	}
	if paymentStatus != nil {
		o.PaymentStatus = *paymentStatus
	}
	return nil
}

type fakeCarts struct {
	lines   []cart.Line
	total   float64
	snapErr error
	cleared int
}

func (f *fakeCarts) Snapshot(ctx context.Context, userID string) ([]cart.Line, float64, error) {
	if f.snapErr != nil {
		return nil, 0, f.snapErr
	}
	return f.lines, f.total, nil
}

func (f *fakeCarts) Clear(ctx context.Context, userID string) error {
	f.cleared++
	return nil
}

type fakeGateway struct {
	initResult payment.InitResult
	initErr    error
	// verifyByRef maps a tx_ref to its outcome; missing refs error.
	verifyByRef map[string]bool
	verifyCalls []string
}

func (f *fakeGateway) Initialize(ctx context.Context, req payment.InitRequest) (payment.InitResult, error) {
	if f.initErr != nil {
		return payment.InitResult{}, f.initErr
	}
	return f.initResult, nil
}

func (f *fakeGateway) Verify(ctx context.Context, txRef string) (bool, error) {
	f.verifyCalls = append(f.verifyCalls, txRef)
	paid, ok := f.verifyByRef[txRef]
	if !ok {
		return false, errors.New("transport error")
	}
	return paid, nil
}

type recordingPublisher struct {
	created   []string
	succeeded []string
	failed    []string
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, o *Order) {
	p.created = append(p.created, o.ID)
}

func (p *recordingPublisher) PublishPaymentSucceeded(ctx context.Context, o *Order) {
	p.succeeded = append(p.succeeded, o.ID)
}

func (p *recordingPublisher) PublishPaymentFailed(ctx context.Context, o *Order, reason string) {
	p.failed = append(p.failed, o.ID)
}

var testURLs = URLs{Frontend: "http://front", Backend: "http://back"}

func validShipping() ShippingInfo {
	return ShippingInfo{
		Name:    "Abebe Kebede",
		Email:   "abebe@example.com",
		Phone:   "+251911000000",
		Address: "Bole, Addis Ababa",
	}
}

func newTestService(repo Repository, carts CartSnapshotter, gw Gateway, pub EventPublisher) *Service {
	return NewService(repo, carts, gw, pub, testURLs, zap.NewNop())
}

func TestCreate_SuccessFreezesTotalAndClearsCart(t *testing.T) {
	repo := newMemRepo()
	carts := &fakeCarts{
		lines: []cart.Line{{ProductID: "p1", Quantity: 2, Price: 100}},
		total: 200,
	}
	gw := &fakeGateway{initResult: payment.InitResult{CheckoutURL: "https://pay/x", TxRef: "abc"}}
	pub := &recordingPublisher{}
	svc := newTestService(repo, carts, gw, pub)

	res, err := svc.Create(context.Background(), "user-1", validShipping())
	require.NoError(t, err)
	require.False(t, res.InitFailed)
	assert.Equal(t, "https://pay/x", res.PaymentURL)

	stored, err := repo.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 200.0, stored.Total)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, PaymentPending, stored.PaymentStatus)
	require.NotNil(t, stored.ChapaTxRef)
	assert.Equal(t, "abc", *stored.ChapaTxRef)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 100.0, stored.Items[0].Price)
	assert.Equal(t, 2, stored.Items[0].Quantity)

	assert.Equal(t, 1, carts.cleared)
	assert.Equal(t, []string{res.Order.ID}, pub.created)
}

func TestCreate_GatewayFailureKeepsOrderAndCart(t *testing.T) {
	repo := newMemRepo()
	carts := &fakeCarts{
		lines: []cart.Line{{ProductID: "p1", Quantity: 1, Price: 50}},
		total: 50,
	}
	gw := &fakeGateway{initErr: payment.ErrInit}
	svc := newTestService(repo, carts, gw, nil)

	res, err := svc.Create(context.Background(), "user-1", validShipping())
	require.NoError(t, err)
	require.True(t, res.InitFailed)
	assert.Empty(t, res.PaymentURL)

	// Order survives in PENDING/PENDING with no tx_ref
	stored, err := repo.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, PaymentPending, stored.PaymentStatus)
	assert.Nil(t, stored.ChapaTxRef)

	// Cart is not cleared when initiation failed
	assert.Equal(t, 0, carts.cleared)
}

func TestCreate_EmptyCart(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeCarts{snapErr: cart.ErrEmptyCart}, &fakeGateway{}, nil)

	_, err := svc.Create(context.Background(), "user-1", validShipping())
	require.ErrorIs(t, err, cart.ErrEmptyCart)
}

func TestCreate_InvalidShipping(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeCarts{}, &fakeGateway{}, nil)

	cases := []ShippingInfo{
		{Email: "a@b.co", Phone: "1", Address: "x"},
		{Name: "A", Email: "not-an-email", Phone: "1", Address: "x"},
		{Name: "A", Email: "a@b.co", Address: "x"},
		{Name: "A", Email: "a@b.co", Phone: "1"},
	}
	for _, sh := range cases {
		_, err := svc.Create(context.Background(), "user-1", sh)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	}
}

func seedOrder(t *testing.T, repo *memRepo, id, userID string, txRef *string) *Order {
	t.Helper()
	o := &Order{ID: id, UserID: userID, Total: 100, ChapaTxRef: txRef}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func strptr(s string) *string { return &s }

func TestVerifyPayment_MarksPaidAndConfirmed(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	gw := &fakeGateway{verifyByRef: map[string]bool{"abc": true}}
	pub := &recordingPublisher{}
	svc := newTestService(repo, &fakeCarts{}, gw, pub)

	o, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-1", false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, []string{"o1"}, pub.succeeded)
}

func TestVerifyPayment_IdempotentOncePaid(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	gw := &fakeGateway{verifyByRef: map[string]bool{"abc": true}}
	svc := newTestService(repo, &fakeCarts{}, gw, nil)

	_, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-1", false)
	require.NoError(t, err)
	require.True(t, updated)

	// Second call short-circuits without touching the gateway again
	callsBefore := len(gw.verifyCalls)
	o, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-1", false)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Len(t, gw.verifyCalls, callsBefore)
}

func TestVerifyPayment_FallsBackToOrderID(t *testing.T) {
	repo := newMemRepo()
	// Stored ref is stale; only the order's own id verifies.
	seedOrder(t, repo, "o1", "user-1", strptr("stale-ref"))
	gw := &fakeGateway{verifyByRef: map[string]bool{"stale-ref": false, "o1": true}}
	svc := newTestService(repo, &fakeCarts{}, gw, nil)

	o, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-1", false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, []string{"stale-ref", "o1"}, gw.verifyCalls)
}

func TestVerifyPayment_TransportErrorTriesNextCandidate(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("broken-ref"))
	// "broken-ref" is absent from the map, so Verify errors; "o1" verifies.
	gw := &fakeGateway{verifyByRef: map[string]bool{"o1": true}}
	svc := newTestService(repo, &fakeCarts{}, gw, nil)

	_, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-1", false)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestVerifyPayment_AllCandidatesFail(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	gw := &fakeGateway{verifyByRef: map[string]bool{"abc": false, "o1": false}}
	svc := newTestService(repo, &fakeCarts{}, gw, nil)

	o, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-1", false)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestVerifyPayment_Forbidden(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-a", strptr("abc"))
	gw := &fakeGateway{verifyByRef: map[string]bool{"abc": true}}
	svc := newTestService(repo, &fakeCarts{}, gw, nil)

	_, _, err := svc.VerifyPayment(context.Background(), "o1", "user-b", false)
	require.ErrorIs(t, err, ErrForbidden)

	// Admins may verify anyone's order
	_, updated, err := svc.VerifyPayment(context.Background(), "o1", "user-b", true)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestVerifyPayment_NotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeCarts{}, &fakeGateway{}, nil)

	_, _, err := svc.VerifyPayment(context.Background(), "missing", "user-1", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHandleWebhook_SuccessByStoredRef(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{"tx_ref":"abc","status":"successful"}`))
	require.NoError(t, err)

	o, _ := repo.GetByID(context.Background(), "o1")
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestHandleWebhook_FailureByOrderIDFallback(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "xyz", "user-1", nil)
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{"data":{"tx_ref":"xyz","status":"failed"}}`))
	require.NoError(t, err)

	o, _ := repo.GetByID(context.Background(), "xyz")
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
	// Fulfillment status untouched on failure
	assert.Equal(t, StatusPending, o.Status)
}

func TestHandleWebhook_DuplicateDeliveryIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	pub := &recordingPublisher{}
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, pub)

	payload := []byte(`{"tx_ref":"abc","status":"success"}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), payload))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload))

	o, _ := repo.GetByID(context.Background(), "o1")
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.Status)
	// The transition is applied exactly once
	assert.Equal(t, []string{"o1"}, pub.succeeded)
}

func TestHandleWebhook_FailureNeverDowngradesPaid(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{"tx_ref":"abc","status":"success"}`)))
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{"tx_ref":"abc","status":"failed"}`)))

	o, _ := repo.GetByID(context.Background(), "o1")
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
}

func TestHandleWebhook_MissingRefMutatesNothing(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", strptr("abc"))
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{"status":"successful"}`))
	require.ErrorIs(t, err, payment.ErrNoTxRef)

	o, _ := repo.GetByID(context.Background(), "o1")
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestHandleWebhook_UnknownOrder(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeCarts{}, &fakeGateway{}, nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{"tx_ref":"nope","status":"successful"}`))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", nil)
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, nil)

	status := StatusShipped
	_, err := svc.UpdateStatus(context.Background(), "o1", &status, nil, false)
	require.ErrorIs(t, err, ErrForbidden)

	o, err := svc.UpdateStatus(context.Background(), "o1", &status, nil, true)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestUpdateStatus_ValidatesEnums(t *testing.T) {
	repo := newMemRepo()
	seedOrder(t, repo, "o1", "user-1", nil)
	svc := newTestService(repo, &fakeCarts{}, &fakeGateway{}, nil)

	bad := Status("TELEPORTED")
	_, err := svc.UpdateStatus(context.Background(), "o1", &bad, nil, true)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	badPay := PaymentStatus("MAYBE")
	_, err = svc.UpdateStatus(context.Background(), "o1", nil, &badPay, true)
	require.ErrorAs(t, err, &ve)

	_, err = svc.UpdateStatus(context.Background(), "o1", nil, nil, true)
	require.ErrorAs(t, err, &ve)
}

func TestPaymentRefCandidates(t *testing.T) {
	withRef := &Order{ID: "o1", ChapaTxRef: strptr("abc")}
	assert.Equal(t, []string{"abc", "o1"}, withRef.PaymentRefCandidates())

	withoutRef := &Order{ID: "o1"}
	assert.Equal(t, []string{"o1"}, withoutRef.PaymentRefCandidates())

	sameRef := &Order{ID: "o1", ChapaTxRef: strptr("o1")}
	assert.Equal(t, []string{"o1"}, sameRef.PaymentRefCandidates())
}
