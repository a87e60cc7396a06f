package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/cart"
	"github.com/gemBekele/zeritu/internal/middleware"
	"github.com/gemBekele/zeritu/internal/order"
	"github.com/gemBekele/zeritu/internal/payment"
)

type OrderHandler struct {
	svc    *order.Service
	logger *zap.Logger
}

func NewOrderHandler(svc *order.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	orders, err := h.svc.List(r.Context(), u.ID, u.IsAdmin())
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	o, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), u.ID, u.IsAdmin())
	if err != nil {
		h.writeOrderError(w, err, "failed to fetch order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// Create builds an order from the caller's cart and starts a payment
// transaction. A gateway-init failure still returns 201: the order
// exists and can be reconciled later.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	var shipping order.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := h.svc.Create(r.Context(), u.ID, shipping)
	if err != nil {
		h.writeOrderError(w, err, "failed to create order")
		return
	}

	if res.InitFailed {
		writeJSON(w, http.StatusCreated, map[string]any{
			"order":       res.Order,
			"payment_url": nil,
			"error":       "payment initialization failed",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order":       res.Order,
		"payment_url": res.PaymentURL,
	})
}

// VerifyPayment is the client-polling reconciliation path, called when
// the user returns from the hosted checkout page.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	o, updated, err := h.svc.VerifyPayment(r.Context(), chi.URLParam(r, "id"), u.ID, u.IsAdmin())
	if err != nil {
		h.writeOrderError(w, err, "failed to verify payment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":   o,
		"updated": updated,
	})
}

// Webhook is the provider-initiated reconciliation path. Unauthenticated,
// at-least-once delivery.
func (h *OrderHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), body); err != nil {
		switch {
		case errors.Is(err, payment.ErrNoTxRef):
			writeError(w, http.StatusBadRequest, "missing transaction reference")
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			h.logger.Error("process webhook", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to process webhook")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "webhook processed"})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	var req struct {
		Status        *order.Status        `json:"status"`
		PaymentStatus *order.PaymentStatus `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.PaymentStatus, u.IsAdmin())
	if err != nil {
		h.writeOrderError(w, err, "failed to update order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, fallback string) {
	var ve *order.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, cart.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
