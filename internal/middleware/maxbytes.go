package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies at 1 MiB. Prompts are the largest
// legitimate input and comfortably fit under this.
const DefaultMaxBodyBytes = 1 << 20

// MaxBytes rejects request bodies larger than maxBytes with 413 before the
// JSON decoder reads them. Values <= 0 use DefaultMaxBodyBytes.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
