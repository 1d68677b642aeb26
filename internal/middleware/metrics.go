package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/metrics"
	"github.com/gofiber/fiber/v2"
)

// Metrics records request count and latency per route pattern, so path
// parameters do not blow up label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" || path == "/" && c.Path() != "/" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Method())
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		metrics.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}
