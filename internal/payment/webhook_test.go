package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhook_FlatSuccess(t *testing.T) {
	n, err := ParseWebhook([]byte(`{"tx_ref":"abc","status":"successful"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", n.TxRef)
	assert.Equal(t, OutcomeSuccess, n.Outcome)
}

func TestParseWebhook_NestedFailure(t *testing.T) {
	n, err := ParseWebhook([]byte(`{"data":{"tx_ref":"xyz","status":"failed"}}`))
	require.NoError(t, err)
	assert.Equal(t, "xyz", n.TxRef)
	assert.Equal(t, OutcomeFailure, n.Outcome)
}

func TestParseWebhook_AltFieldNameAndCasing(t *testing.T) {
	n, err := ParseWebhook([]byte(`{"txRef":"abc","status":"COMPLETED"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", n.TxRef)
	assert.Equal(t, OutcomeSuccess, n.Outcome)
}

func TestParseWebhook_FlatRefNestedStatus(t *testing.T) {
	n, err := ParseWebhook([]byte(`{"tx_ref":"abc","data":{"status":"success"}}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", n.TxRef)
	assert.Equal(t, OutcomeSuccess, n.Outcome)
}

func TestParseWebhook_UnknownStatusFailsClosed(t *testing.T) {
	n, err := ParseWebhook([]byte(`{"tx_ref":"abc","status":"reversed"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, n.Outcome)
}

func TestParseWebhook_MissingStatusFailsClosed(t *testing.T) {
	n, err := ParseWebhook([]byte(`{"tx_ref":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, n.Outcome)
}

func TestParseWebhook_MissingRef(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"status":"successful"}`))
	require.ErrorIs(t, err, ErrNoTxRef)
}

func TestParseWebhook_InvalidJSON(t *testing.T) {
	_, err := ParseWebhook([]byte(`not json`))
	require.ErrorIs(t, err, ErrNoTxRef)
}
