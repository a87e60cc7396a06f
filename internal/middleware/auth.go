package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gemBekele/zeritu/internal/session"
	"github.com/gemBekele/zeritu/internal/user"
)

const SessionCookie = "session"

type ctxKey string

const (
	ctxCorrelationID ctxKey = "correlation_id"
	ctxUser          ctxKey = "user"
)

// Auth resolves the session cookie against the session store and loads
// the current user into the request context.
type Auth struct {
	Sessions session.Store
	Users    user.Repository
}

// RequireUser rejects unauthenticated requests with 401.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := a.resolve(r)
		if u == nil {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, u)))
	})
}

// OptionalUser loads the current user when a valid session cookie is
// present but lets anonymous requests through.
func (a *Auth) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := a.resolve(r); u != nil {
			r = r.WithContext(context.WithValue(r.Context(), ctxUser, u))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-admin callers with 403 (401 when anonymous).
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := CurrentUser(r.Context()); u == nil || !u.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (a *Auth) resolve(r *http.Request) *user.User {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := a.Sessions.Get(r.Context(), cookie.Value)
	if err != nil || sess == nil {
		return nil
	}

	u, err := a.Users.GetByID(r.Context(), sess.UserID)
	if err != nil {
		return nil
	}
	return u
}

// CurrentUser returns the authenticated user, or nil outside RequireUser.
func CurrentUser(ctx context.Context) *user.User {
	if v := ctx.Value(ctxUser); v != nil {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}

// WithUser injects a user into the context; test helper for handlers.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
