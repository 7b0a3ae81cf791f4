package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig controls cross-origin access for the browser client.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

// DefaultCORSConfig allows the given origins with the methods and headers the API uses.
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         12 * time.Hour,
	}
}

// CORS answers preflight requests and decorates responses for allowed origins.
type CORS struct {
	config    CORSConfig
	anyOrigin bool
	origins   map[string]struct{}
}

// NewCORS builds the middleware. A "*" entry allows every origin.
func NewCORS(config CORSConfig) *CORS {
	c := &CORS{config: config, origins: make(map[string]struct{})}
	for _, o := range config.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			c.anyOrigin = true
			continue
		}
		if o != "" {
			c.origins[strings.ToLower(o)] = struct{}{}
		}
	}
	return c
}

// AllowsOrigin reports whether origin may call the API.
func (c *CORS) AllowsOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if c.anyOrigin {
		return true
	}
	_, ok := c.origins[strings.ToLower(origin)]
	return ok
}

// Middleware returns the HTTP middleware function
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		headers := w.Header()
		headers.Add("Vary", "Origin")

		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
		if !c.AllowsOrigin(origin) {
			if preflight {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if c.anyOrigin {
			headers.Set("Access-Control-Allow-Origin", "*")
		} else {
			headers.Set("Access-Control-Allow-Origin", origin)
		}

		if !preflight {
			if len(c.config.ExposedHeaders) > 0 {
				headers.Set("Access-Control-Expose-Headers", strings.Join(c.config.ExposedHeaders, ", "))
			}
			next.ServeHTTP(w, r)
			return
		}

		headers.Add("Vary", "Access-Control-Request-Method")
		headers.Add("Vary", "Access-Control-Request-Headers")
		headers.Set("Access-Control-Allow-Methods", strings.Join(c.config.AllowedMethods, ", "))
		headers.Set("Access-Control-Allow-Headers", strings.Join(c.config.AllowedHeaders, ", "))
		if c.config.MaxAge > 0 {
			headers.Set("Access-Control-Max-Age", strconv.Itoa(int(c.config.MaxAge/time.Second)))
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
