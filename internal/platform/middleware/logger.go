package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
)

// Logger writes one line per request. Server failures log at error, client
// failures at warn, and health probes at debug. The error handler runs after
// this middleware, so the status of a failed request is derived from err.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			status, reason := c.Response().Status, ""
			if err != nil {
				status, reason = describe(err)
			}

			var evt *zerolog.Event
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn().Str("reason", reason)
			case strings.HasPrefix(req.URL.Path, "/health"):
				evt = logger.Debug()
			default:
				evt = logger.Info()
			}

			rid, _ := c.Get("request_id").(string)
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if cid, ok := c.Get("custom_id").(string); ok {
				evt = evt.Str("custom_id", cid)
			}
			evt.Msg("request")

			return err
		}
	}
}

func describe(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	return apperr.Status(err), apperr.Message(err)
}
