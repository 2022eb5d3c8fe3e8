package handlers

import (
	"strings"

	"qrstudio/internal/payload"

	"github.com/gin-gonic/gin"
)

// siteFromRequest returns the origin the client used to reach us. Forwarded
// headers are only honoured when trustProxy is set.
func siteFromRequest(c *gin.Context, trustProxy bool) payload.Site {
	site := payload.Site{Scheme: "http", Host: c.Request.Host}
	if c.Request.TLS != nil {
		site.Scheme = "https"
	}
	if !trustProxy {
		return site
	}
	if proto := firstHeaderValue(c.GetHeader("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		site.Scheme = proto
	}
	if host := firstHeaderValue(c.GetHeader("X-Forwarded-Host")); host != "" {
		site.Host = host
	}
	return site
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
