package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/auth"
)

// OwnerHeader names the owner directly when token auth is disabled.
const OwnerHeader = "X-Owner-ID"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// Auth resolves the owner from a bearer token and stores it in the request
// context. Requests without a valid token are rejected with 401.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			ctx := domain.WithOwner(r.Context(), claims.Owner())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeaderOwner trusts the X-Owner-ID header. Only for local development with
// auth disabled.
func HeaderOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if ownerID == "" {
			unauthorized(w, "missing "+OwnerHeader+" header")
			return
		}

		ctx := domain.WithOwner(r.Context(), domain.Owner{ID: ownerID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   "unauthorized",
		Message: details,
		Kind:    string(domain.KindUnauthorized),
	})
}
