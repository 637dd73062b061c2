package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig lists what browsers on other origins may do.
type CORSConfig struct {
	// Origins allowed to call the API. Empty or "*" allows any origin; with
	// credentials the request origin is echoed instead of "*".
	Origins          []string
	Methods          []string
	Headers          []string
	Expose           []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// CORS answers preflight requests and decorates cross-origin responses.
func CORS(cfg CORSConfig) Middleware {
	anyOrigin := len(cfg.Origins) == 0
	allowed := make(map[string]string, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			anyOrigin = true
			continue
		}
		allowed[strings.ToLower(o)] = o
	}
	methods := strings.Join(cfg.Methods, ", ")
	if methods == "" {
		methods = "GET, POST, PATCH, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.Headers, ", ")
	expose := strings.Join(cfg.Expose, ", ")

	allowOrigin := func(origin string) string {
		if o, ok := allowed[strings.ToLower(origin)]; ok {
			return o
		}
		switch {
		case !anyOrigin:
			return ""
		case cfg.AllowCredentials:
			return origin
		default:
			return "*"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			ao := allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if ao != "" {
					h.Set("Access-Control-Allow-Origin", ao)
					h.Set("Access-Control-Allow-Methods", methods)
					if headers != "" {
						h.Set("Access-Control-Allow-Headers", headers)
					} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						h.Set("Access-Control-Allow-Headers", req)
					}
					if cfg.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if cfg.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if ao != "" {
				h.Set("Access-Control-Allow-Origin", ao)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
