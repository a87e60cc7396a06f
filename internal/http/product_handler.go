package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/product"
	"github.com/gemBekele/zeritu/internal/upload"
)

const maxUploadSize = 10 << 20 // 10 MiB

type ProductHandler struct {
	repo    product.Repository
	uploads *upload.Store
	logger  *zap.Logger
}

func NewProductHandler(repo product.Repository, uploads *upload.Store, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{repo: repo, uploads: uploads, logger: logger}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := product.ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     atoiDefault(q.Get("page"), 1),
		Limit:    atoiDefault(q.Get("limit"), 20),
	}

	products, total, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch products")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products":   products,
		"pagination": newPagination(f.Page, f.Limit, total),
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseProductForm(w, r, nil)
	if !ok {
		return
	}
	if p.Image == "" {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		h.logger.Error("create product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	p, ok := h.parseProductForm(w, r, existing)
	if !ok {
		return
	}

	if err := h.repo.Update(r.Context(), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("update product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("delete product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// parseProductForm reads the multipart form shared by create and update.
// When base is non-nil its fields are the defaults, so partial updates keep
// existing values.
func (h *ProductHandler) parseProductForm(w http.ResponseWriter, r *http.Request, base *product.Product) (*product.Product, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return nil, false
	}

	p := &product.Product{IsActive: true}
	if base != nil {
		copied := *base
		p = &copied
	}

	if v := r.FormValue("title"); v != "" {
		p.Title = v
	}
	if v := r.FormValue("description"); v != "" {
		p.Description = v
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price <= 0 {
			writeError(w, http.StatusBadRequest, "price must be a positive number")
			return nil, false
		}
		p.Price = price
	}
	if v := r.FormValue("category"); v != "" {
		p.Category = product.Category(v)
	}
	if v := r.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			writeError(w, http.StatusBadRequest, "stock must be a non-negative integer")
			return nil, false
		}
		p.Stock = stock
	}
	if v := r.FormValue("isActive"); v != "" {
		p.IsActive = v == "true"
	}

	if p.Title == "" || p.Description == "" || p.Price <= 0 {
		writeError(w, http.StatusBadRequest, "title, description and price are required")
		return nil, false
	}
	if !product.ValidCategory(p.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return nil, false
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		path, err := h.uploads.Save(file, header)
		if err != nil {
			h.logger.Error("save upload", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store image")
			return nil, false
		}
		p.Image = path
	}

	return p, true
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
