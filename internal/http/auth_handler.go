package http

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/middleware"
	"github.com/gemBekele/zeritu/internal/session"
	"github.com/gemBekele/zeritu/internal/user"
)

type AuthHandler struct {
	users    user.Repository
	sessions session.Store
	logger   *zap.Logger
}

func NewAuthHandler(users user.Repository, sessions session.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userResponse struct {
	User *user.User `json:"user"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	existing, _, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to sign up")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "user already exists")
		return
	}

	hash, err := user.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to sign up")
		return
	}

	u := &user.User{Email: req.Email, Name: req.Name}
	if err := h.users.Create(r.Context(), u, hash); err != nil {
		h.logger.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to sign up")
		return
	}

	if !h.startSession(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{User: u})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	u, hash, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if u == nil || !user.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !h.startSession(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Error("delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	sess, err := h.sessions.Create(r.Context(), userID, session.DefaultTTL)
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
	})
	return true
}
