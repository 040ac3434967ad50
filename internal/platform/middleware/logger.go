package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger returns middleware that writes one line per request. Field
// names match the gateway's request log, so a call can be followed from
// the client through the server by its correlation id.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			status := c.Response().Status
			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
				// An error returned before the response is committed has
				// not set Status yet; resolve it from the error itself.
				if !c.Response().Committed {
					status = http.StatusInternalServerError
					var httpErr *echo.HTTPError
					if errors.As(err, &httpErr) {
						status = httpErr.Code
					}
				}
			}

			evt.
				Str("request_id", RequestIDFrom(c)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
