package middleware

import (
	"net/http"
)

// DefaultMaxBody matches the default upload limit of 16 MB.
const DefaultMaxBody = 16 << 20

// MaxBody caps request bodies of write methods. Handlers see a
// *http.MaxBytesError when a client sends more.
func MaxBody(maxSize int64) Middleware {
	if maxSize <= 0 {
		maxSize = DefaultMaxBody
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				if r.ContentLength > maxSize {
					writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "File too large")
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			}
			next.ServeHTTP(w, r)
		})
	}
}
