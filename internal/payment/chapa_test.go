package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitialize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"checkout_url":"https://pay/x","tx_ref":"abc"}}`))
	}))
	defer srv.Close()

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	res, err := c.Initialize(context.Background(), InitRequest{
		Amount: 200, Currency: "ETB", Email: "a@b.co", TxRef: "order-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay/x", res.CheckoutURL)
	assert.Equal(t, "abc", res.TxRef)
}

func TestInitialize_ProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed","message":"invalid amount"}`))
	}))
	defer srv.Close()

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	_, err := c.Initialize(context.Background(), InitRequest{TxRef: "order-1"})
	require.ErrorIs(t, err, ErrInit)
}

func TestInitialize_MissingSecretKey(t *testing.T) {
	c := NewChapaClient("", "http://unused", zap.NewNop())

	_, err := c.Initialize(context.Background(), InitRequest{TxRef: "order-1"})
	require.ErrorIs(t, err, ErrInit)
}

func TestInitialize_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	_, err := c.Initialize(context.Background(), InitRequest{TxRef: "order-1"})
	require.ErrorIs(t, err, ErrInit)
}

func TestVerify_Paid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/abc", r.URL.Path)
		w.Write([]byte(`{"status":"success","data":{"status":"successful"}}`))
	}))
	defer srv.Close()

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	paid, err := c.Verify(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestVerify_PendingIsNotPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"status":"pending"}}`))
	}))
	defer srv.Close()

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	paid, err := c.Verify(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestVerify_UnparseableBodyIsAmbiguity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	// Ambiguity is a negative result, not an error.
	paid, err := c.Verify(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestVerify_TransportFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewChapaClient("sk-test", srv.URL, zap.NewNop())

	_, err := c.Verify(context.Background(), "abc")
	require.Error(t, err)
}
