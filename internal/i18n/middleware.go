package i18n

import (
	"github.com/gin-gonic/gin"
)

const (
	localeKey = "locale"
	bundleKey = "i18n"
)

// Middleware resolves the request locale from ?lang= or Accept-Language.
func Middleware(b *Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := b.Negotiate(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(localeKey, locale)
		c.Set(bundleKey, b)
		c.Header("Content-Language", locale)
		c.Next()
	}
}

// Locale returns the negotiated locale, or Fallback when the middleware did not run.
func Locale(c *gin.Context) string {
	if l := c.GetString(localeKey); l != "" {
		return l
	}
	return Fallback
}

// FromContext returns the bundle installed by Middleware.
func FromContext(c *gin.Context) (*Bundle, bool) {
	v, ok := c.Get(bundleKey)
	if !ok {
		return nil, false
	}
	b, ok := v.(*Bundle)
	return b, ok
}

// T translates key for the current request.
func T(c *gin.Context, key string, params map[string]string) string {
	b, ok := FromContext(c)
	if !ok {
		return key
	}
	return b.T(Locale(c), key, params)
}
