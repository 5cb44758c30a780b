package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"ticketsale/pkg/logger"
)

// CorrelationID ensures every request has an X-Request-ID and carries it
// on the context so log lines and published events can be joined up.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", reqID)
		ctx := logger.ContextWithCorrelationID(r.Context(), reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
