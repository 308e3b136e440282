package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RequestLogger logs every request once it completes and feeds the request metrics.
// Errors are passed through untouched for the fiber error handler.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		route := c.Route().Path
		method := c.Method()
		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("route", route),
			zap.String("path", c.Path()),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}

		if err != nil {
			domainErr := apperrors.ToDomainError(err)
			status = domainErr.HTTPStatus
			metrics.RecordError(route, method, domainErr.Code)
			fields = append(fields, zap.Int("status", status), zap.String("code", domainErr.Code))
			if status >= fiber.StatusInternalServerError {
				logger.Error("request failed", append(fields, zap.Error(err))...)
			} else {
				logger.Info("request rejected", fields...)
			}
		} else {
			logger.Info("request completed", append(fields, zap.Int("status", status))...)
		}

		metrics.RecordRequest(route, method, status, latency)
		return err
	}
}
