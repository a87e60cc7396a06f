package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/cart"
	"github.com/gemBekele/zeritu/internal/middleware"
	"github.com/gemBekele/zeritu/internal/product"
)

type CartHandler struct {
	repo     cart.Repository
	products product.Repository
	logger   *zap.Logger
}

func NewCartHandler(repo cart.Repository, products product.Repository, logger *zap.Logger) *CartHandler {
	return &CartHandler{repo: repo, products: products, logger: logger}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	items, err := h.repo.List(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("list cart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch cart")
		return
	}

	total := 0.0
	for _, it := range items {
		total += it.Product.Price * float64(it.Quantity)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "productId and a positive quantity are required")
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.logger.Error("get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if !p.IsActive {
		writeError(w, http.StatusBadRequest, "product is not available")
		return
	}

	item, err := h.repo.Add(r.Context(), u.ID, req.ProductID, req.Quantity)
	if err != nil {
		h.logger.Error("add cart item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}
	item.Product = p

	writeJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	item, err := h.repo.UpdateQuantity(r.Context(), u.ID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.logger.Error("update cart item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "cart item not found")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	if err := h.repo.Remove(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		h.logger.Error("remove cart item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to remove from cart")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "item removed from cart"})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())

	if err := h.repo.Clear(r.Context(), u.ID); err != nil {
		h.logger.Error("clear cart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
