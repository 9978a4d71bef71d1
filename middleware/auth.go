package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Dosada05/run-contest/models"
)

type contextKey string

const accountContextKey contextKey = "account"

// TokenParser resolves a bearer token to the account it was issued for.
type TokenParser interface {
	ParseToken(token string) (models.Address, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's account in the request context.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			account, err := tokens.ParseToken(strings.TrimSpace(token))
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="run-contest"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
