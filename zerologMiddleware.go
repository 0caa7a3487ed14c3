package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ZeroLogMiddleware logs gin requests via zerolog, skipping liveness and readiness requests
func ZeroLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {

		path := c.Request.URL.Path
		if path == "/liveness" || path == "/readiness" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = log.Warn()
		case len(c.Errors) > 0:
			event = log.Info().Str("errors", c.Errors.String())
		default:
			event = log.Debug()
		}

		event.
			Int("statusCode", statusCode).
			Dur("latencyMs", latency).
			Str("clientIP", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Msgf("[GIN] %3d %13v %-7s %s", statusCode, latency, c.Request.Method, path)
	}
}
