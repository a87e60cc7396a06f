package http

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/article"
	"github.com/gemBekele/zeritu/internal/middleware"
	"github.com/gemBekele/zeritu/internal/upload"
)

type ArticleHandler struct {
	repo    article.Repository
	uploads *upload.Store
	logger  *zap.Logger
}

func NewArticleHandler(repo article.Repository, uploads *upload.Store, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{repo: repo, uploads: uploads, logger: logger}
}

func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Drafts are visible only when an admin asks for everything.
	publishedOnly := true
	if q.Get("published") == "all" {
		if u := middleware.CurrentUser(r.Context()); u != nil && u.IsAdmin() {
			publishedOnly = false
		}
	}

	f := article.ListFilter{
		PublishedOnly: publishedOnly,
		Search:        q.Get("search"),
		Page:          atoiDefault(q.Get("page"), 1),
		Limit:         atoiDefault(q.Get("limit"), 20),
	}

	articles, total, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list articles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch articles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"articles":   articles,
		"pagination": newPagination(f.Page, f.Limit, total),
	})
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("get article", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch article")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := h.parseArticleForm(w, r, nil)
	if !ok {
		return
	}

	if u := middleware.CurrentUser(r.Context()); u != nil {
		a.AuthorID = &u.ID
	}

	if err := h.repo.Create(r.Context(), a); err != nil {
		h.logger.Error("create article", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create article")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("get article", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update article")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}

	a, ok := h.parseArticleForm(w, r, existing)
	if !ok {
		return
	}

	if err := h.repo.Update(r.Context(), a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		h.logger.Error("update article", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update article")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		h.logger.Error("delete article", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete article")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "article deleted"})
}

func (h *ArticleHandler) parseArticleForm(w http.ResponseWriter, r *http.Request, base *article.Article) (*article.Article, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return nil, false
	}

	a := &article.Article{}
	if base != nil {
		copied := *base
		a = &copied
	}

	if v := r.FormValue("title"); v != "" {
		a.Title = v
	}
	if v := r.FormValue("excerpt"); v != "" {
		a.Excerpt = v
	}
	if v := r.FormValue("content"); v != "" {
		a.Content = v
	}
	if v := r.FormValue("published"); v != "" {
		a.Published = v == "true"
	}

	if a.Title == "" || a.Excerpt == "" || a.Content == "" {
		writeError(w, http.StatusBadRequest, "title, excerpt and content are required")
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
		a.Image = &path
	}

	return a, true
}
