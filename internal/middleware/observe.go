package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"amlguard/internal/metrics"
)

// RequestContext puts a logger tagged with the request id on the user
// context so services can use log.Ctx. Mount it after requestid.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := log.With().Str("request_id", requestID(c)).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// Metrics records one observation per request, labelled by route pattern
// rather than raw path.
func Metrics(collector metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			code = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
		}
		collector.ObserveHTTP(c.Method(), c.Route().Path, code, time.Since(start))
		return err
	}
}
