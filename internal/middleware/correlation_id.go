package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const HeaderCorrelationID = "X-Correlation-Id"

// CorrelationID tags each request with an id, minting one when the
// caller did not send one. The id is echoed in the response header and
// carried in the context for the request logger.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, id)

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), ctxCorrelationID, id)))
	})
}

// GetCorrelationID returns the request id, or "" outside CorrelationID.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxCorrelationID).(string)
	return id
}
