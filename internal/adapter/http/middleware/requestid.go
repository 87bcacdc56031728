package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/rentledger/internal/domain"
)

// RequestID assigns a request ID (or keeps the caller's X-Request-Id), echoes
// it in the response and makes it available to audit logging.
func RequestID(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimw.GetReqID(r.Context())
		w.Header().Set(chimw.RequestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(domain.WithRequestID(r.Context(), id)))
	}))
}
