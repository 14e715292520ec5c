package middleware

import (
	"errors"
	"time"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ResponseStatus is the status the client will see. A returned error is only
// written by the app's ErrorHandler after the middleware chain unwinds, so
// the status is derived from err in that case.
func ResponseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return errs.KindOf(err).Status()
}

// RequestLogger logs every request once it has been handled.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", ResponseStatus(c, err)),
			zap.Duration("latency", latency),
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}

		if err != nil {
			logger.Warn("HTTP Request Error", append(fields, zap.Error(err))...)
			return err
		}
		logger.Info("HTTP Request", fields...)
		return nil
	}
}
