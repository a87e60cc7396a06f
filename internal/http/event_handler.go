package http

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/event"
	"github.com/gemBekele/zeritu/internal/upload"
)

type EventHandler struct {
	repo    event.Repository
	uploads *upload.Store
	logger  *zap.Logger
}

func NewEventHandler(repo event.Repository, uploads *upload.Store, logger *zap.Logger) *EventHandler {
	return &EventHandler{repo: repo, uploads: uploads, logger: logger}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := event.ListFilter{
		Status: q.Get("status"),
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 20),
	}

	events, total, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":     events,
		"pagination": newPagination(f.Page, f.Limit, total),
	})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("get event", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch event")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	e, ok := h.parseEventForm(w, r, nil)
	if !ok {
		return
	}

	if err := h.repo.Create(r.Context(), e); err != nil {
		h.logger.Error("create event", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("get event", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	e, ok := h.parseEventForm(w, r, existing)
	if !ok {
		return
	}

	if err := h.repo.Update(r.Context(), e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logger.Error("update event", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logger.Error("delete event", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

func (h *EventHandler) parseEventForm(w http.ResponseWriter, r *http.Request, base *event.Event) (*event.Event, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return nil, false
	}

	e := &event.Event{}
	if base != nil {
		copied := *base
		e = &copied
	}

	if v := r.FormValue("title"); v != "" {
		e.Title = v
	}
	if v := r.FormValue("description"); v != "" {
		e.Description = v
	}
	if v := r.FormValue("date"); v != "" {
		d, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be RFC 3339")
			return nil, false
		}
		e.Date = d
	}
	if v := r.FormValue("time"); v != "" {
		e.Time = v
	}
	if v := r.FormValue("location"); v != "" {
		e.Location = v
	}
	if v := r.FormValue("status"); v != "" {
		s := event.Status(v)
		if !event.ValidStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return nil, false
		}
		e.Status = s
	}

	if e.Title == "" || e.Description == "" || e.Date.IsZero() || e.Time == "" || e.Location == "" {
		writeError(w, http.StatusBadRequest, "title, description, date, time and location are required")
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
		e.Image = &path
	}

	return e, true
}
