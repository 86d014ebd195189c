package api

import (
	"crypto/subtle"
	"net/http"
)

// requireAPIKey rejects requests whose header does not match the expected
// key. An empty expected key disables the check; the server logs a warning
// at startup in that case rather than locking everyone out.
func requireAPIKey(header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				got := r.Header.Get(header)
				if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
					jsonErr(w, http.StatusUnauthorized, "invalid or missing API key")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
