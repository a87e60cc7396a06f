package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemBekele/zeritu/internal/session"
	"github.com/gemBekele/zeritu/internal/user"
)

type fakeSessions struct {
	byToken map[string]*session.Session
}

func (f *fakeSessions) Create(ctx context.Context, userID string, ttl time.Duration) (*session.Session, error) {
	return nil, nil
}

func (f *fakeSessions) Get(ctx context.Context, token string) (*session.Session, error) {
	return f.byToken[token], nil
}

func (f *fakeSessions) Delete(ctx context.Context, token string) error { return nil }

func (f *fakeSessions) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type fakeUsers struct {
	byID map[string]*user.User
}

func (f *fakeUsers) Create(ctx context.Context, u *user.User, passwordHash string) error { return nil }

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*user.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*user.User, string, error) {
	return nil, "", nil
}

func newTestAuth() *Auth {
	return &Auth{
		Sessions: &fakeSessions{byToken: map[string]*session.Session{
			"tok-user":  {Token: "tok-user", UserID: "u1"},
			"tok-admin": {Token: "tok-admin", UserID: "a1"},
		}},
		Users: &fakeUsers{byID: map[string]*user.User{
			"u1": {ID: "u1", Role: user.RoleUser},
			"a1": {ID: "a1", Role: user.RoleAdmin},
		}},
	}
}

func echoUserID(w http.ResponseWriter, r *http.Request) {
	if u := CurrentUser(r.Context()); u != nil {
		_, _ = w.Write([]byte(u.ID))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	return req
}

func TestRequireUser(t *testing.T) {
	a := newTestAuth()
	h := a.RequireUser(http.HandlerFunc(echoUserID))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "tok-user"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	// No cookie
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown token
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "tok-bogus"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalUser(t *testing.T) {
	a := newTestAuth()
	h := a.OptionalUser(http.HandlerFunc(echoUserID))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "tok-user"))
	assert.Equal(t, "u1", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	a := newTestAuth()
	h := a.RequireAdmin(http.HandlerFunc(echoUserID))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "tok-admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "tok-user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
