package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP      = "default-src 'none'; frame-ancestors 'none'"
	documentCSP = "default-src 'none'; object-src 'self'; frame-ancestors 'self'"
)

// SecurityHeaders sets the response headers expected of a JSON API that
// returns health data. Paths under one of documentPrefixes serve stored lab
// report PDFs, which the web client embeds in a same-origin frame.
func SecurityHeaders(documentPrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "0")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// Responses carry medical records; never let proxies keep them.
			h.Set("Cache-Control", "no-store")

			if isDocumentPath(c.Request().URL.Path, documentPrefixes) {
				h.Set("X-Frame-Options", "SAMEORIGIN")
				h.Set("Content-Security-Policy", documentCSP)
			} else {
				h.Set("X-Frame-Options", "DENY")
				h.Set("Content-Security-Policy", apiCSP)
			}
			return next(c)
		}
	}
}

func isDocumentPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
