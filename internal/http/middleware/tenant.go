package middleware

import (
	"net/http"
	"strings"

	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by TenantMiddleware
const (
	TenantConfigKey = "tenant_config"
	TenantScopeKey  = "tenant_scope"
)

// TenantOptions controls how a request names its backend
type TenantOptions struct {
	Resolver     *tenant.Resolver
	Codec        *tenant.Codec
	CookieName   string
	TenantHeader string
}

// TenantMiddleware resolves the request's backend store and attaches it, with
// its tenant scope, to the request context. A cookie that cannot be opened is
// ignored and cleared; the request then proceeds as if it had none.
func TenantMiddleware(opts TenantOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cfg *tenant.Config
		if raw, err := c.Cookie(opts.CookieName); err == nil && raw != "" {
			opened, err := opts.Codec.Open(raw)
			if err != nil {
				colors.PrintWarning("Ignoring tenant cookie from %s: %v", c.ClientIP(), err)
				c.SetCookie(opts.CookieName, "", -1, "/", "", false, true)
			} else {
				cfg = opened
				c.Set(TenantConfigKey, opened)
			}
		}

		overrideID := strings.TrimSpace(c.GetHeader(opts.TenantHeader))
		if overrideID == "" {
			overrideID = strings.TrimSpace(c.Query("tenant"))
		}

		store, scope := opts.Resolver.Resolve(c.Request.Context(), overrideID, cfg)
		ctx := tenant.WithStore(c.Request.Context(), store)
		ctx = tenant.WithScope(ctx, scope)
		c.Request = c.Request.WithContext(ctx)
		c.Set(TenantScopeKey, scope)

		c.Next()
	}
}

// RequireJSON rejects write requests whose body is not JSON
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength != 0 && !strings.HasPrefix(c.ContentType(), "application/json") {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{
					"success": false,
					"error":   "UNSUPPORTED_MEDIA_TYPE",
					"message": "Request body must be application/json",
				})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
