package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/vibelive/backend/internal/api/response"
)

// AdminKeyHeader carries the operator key for admin endpoints.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards admin routes with a bcrypt-hashed operator key. When no
// hash is configured the routes are unavailable entirely.
func AdminKey(keyHash string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				response.Unauthorized(w, "admin access not configured")
				return
			}

			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				response.Unauthorized(w, "missing admin key")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				response.Unauthorized(w, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
