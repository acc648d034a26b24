package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// AuthConfig is shared with the server so credentials can change on reload.
type AuthConfig struct {
	mu       sync.RWMutex
	enabled  bool
	user     string
	password string
}

func NewAuthConfig(enabled bool, user, password string) *AuthConfig {
	return &AuthConfig{enabled: enabled, user: user, password: password}
}

func (c *AuthConfig) Update(enabled bool, user, password string) {
	c.mu.Lock()
	c.enabled = enabled
	c.user = user
	c.password = password
	c.mu.Unlock()
}

func (c *AuthConfig) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Verify reports whether user and password match in constant time.
func (c *AuthConfig) Verify(user, password string) bool {
	c.mu.RLock()
	wantUser, wantPass := c.user, c.password
	c.mu.RUnlock()

	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(wantPass)) == 1
	return userMatch && passMatch
}

// Auth enforces basic auth. Paths ending with "*" in excludePaths are
// prefixes.
func Auth(config *AuthConfig, excludePaths ...string) Middleware {
	exact := make(map[string]bool)
	var prefixes []string
	for _, path := range excludePaths {
		if p, ok := strings.CutSuffix(path, "*"); ok {
			prefixes = append(prefixes, p)
		} else {
			exact[path] = true
		}
	}

	excluded := func(path string) bool {
		if exact[path] {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || !config.Verify(user, pass) {
				unauthorized(w, "ensemblr")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
}
