package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type DebugAuthConfig struct {
	// Token enables Bearer authentication.
	Token string
	// Fallback is used when Token is empty.
	Fallback *AuthConfig
}

// DebugAuth protects profiling endpoints. A token takes precedence over
// basic auth; with neither configured every request is refused.
func DebugAuth(config DebugAuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Token != "" {
				if !checkBearerToken(r, config.Token) {
					writeError(w, http.StatusForbidden, "forbidden", "Forbidden - Debug authentication required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if config.Fallback != nil && config.Fallback.Enabled() {
				user, pass, ok := r.BasicAuth()
				if !ok || !config.Fallback.Verify(user, pass) {
					unauthorized(w, "ensemblr-debug")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			writeError(w, http.StatusForbidden, "forbidden", "Forbidden - Debug authentication required")
		})
	}
}

func checkBearerToken(r *http.Request, expected string) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
