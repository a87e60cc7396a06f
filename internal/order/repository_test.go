package order

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Order ids are uuid columns. Lookups keyed by external input (path
// params, payment references falling through to the id) must treat a
// non-uuid key as absent instead of surfacing a database type error;
// a webhook carrying an unknown provider reference ends up here.
func TestGetByID_NonUUIDKeyIsNotFound(t *testing.T) {
	r := NewRepository(nil)

	o, err := r.GetByID(context.Background(), "garbage-ref")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestUpdateStatus_NonUUIDKeyIsNotFound(t *testing.T) {
	r := NewRepository(nil)

	status := StatusShipped
	err := r.UpdateStatus(context.Background(), "not-a-uuid", &status, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
