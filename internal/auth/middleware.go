package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/isdelr/goodcontent-auth/internal/apperr"
	"github.com/rs/zerolog/log"
)

// AdminKeyHeader carries the key for administrative routes.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware rejects requests whose AdminKeyHeader does not match
// key. An empty key disables the check.
func AdminKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AdminKeyMatches(r.Header.Get(AdminKeyHeader), key) {
				log.Warn().Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("Rejected request without admin key")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": apperr.MsgAdminKeyRequired})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminKeyMatches compares got against key in constant time.
func AdminKeyMatches(got, key string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
}
