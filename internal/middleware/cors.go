package middleware

import (
	"net/http"
)

// CORSMiddleware sets cross-origin headers for the dashboard and
// simulator frontends.
type CORSMiddleware struct {
	allowed  map[string]struct{}
	allowAll bool
}

// NewCORSMiddleware creates the middleware. With no origins configured,
// or with a "*" entry, every origin is allowed.
func NewCORSMiddleware(origins ...string) *CORSMiddleware {
	m := &CORSMiddleware{
		allowed:  make(map[string]struct{}, len(origins)),
		allowAll: len(origins) == 0,
	}
	for _, origin := range origins {
		if origin == "*" {
			m.allowAll = true
			continue
		}
		m.allowed[origin] = struct{}{}
	}
	return m
}

// Wrap adds CORS headers for allowed origins and answers preflight
// OPTIONS requests without reaching the inner handler.
func (m *CORSMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && m.originAllowed(origin) {
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CORSMiddleware) originAllowed(origin string) bool {
	if m.allowAll {
		return true
	}
	_, ok := m.allowed[origin]
	return ok
}
