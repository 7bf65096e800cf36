package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig lists the browser origins allowed to call the API. "*" allows any
// origin; with credentials the caller's origin is echoed back instead.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderXRequestID},
		ExposeHeaders:    []string{HeaderXRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

type corsPolicy struct {
	origins  map[string]struct{}
	wildcard bool
	config   CORSConfig
	methods  string
	headers  string
	exposed  string
	maxAge   string
}

func newCORSPolicy(config CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins: make(map[string]struct{}, len(config.AllowOrigins)),
		config:  config,
		methods: strings.Join(config.AllowMethods, ", "),
		headers: strings.Join(config.AllowHeaders, ", "),
		exposed: strings.Join(config.ExposeHeaders, ", "),
		maxAge:  strconv.Itoa(config.MaxAge),
	}
	for _, o := range config.AllowOrigins {
		if o == "*" {
			p.wildcard = true
			continue
		}
		p.origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return p
}

func (p *corsPolicy) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[origin]; ok {
		return origin
	}
	if p.wildcard {
		if p.config.AllowCredentials {
			return origin
		}
		return "*"
	}
	return ""
}

// CORS answers preflight requests itself and decorates simple requests.
// Requests from unknown origins pass through without CORS headers.
func CORS(config CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(config)
	return func(c *gin.Context) {
		allowed := policy.allowOrigin(c.GetHeader("Origin"))
		if allowed == "" {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Vary", "Origin")
		if config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			if policy.exposed != "" {
				c.Header("Access-Control-Expose-Headers", policy.exposed)
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Methods", policy.methods)
		c.Header("Access-Control-Allow-Headers", policy.headers)
		c.Header("Access-Control-Max-Age", policy.maxAge)
		c.AbortWithStatus(http.StatusNoContent)
	}
}
