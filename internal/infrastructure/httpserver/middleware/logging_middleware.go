package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LoggingMiddleware traces local API calls. The UI shell is the only client,
// so one debug line per completed request with its request ID is enough to
// line shell-side traces up with agent logs.
type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{
					"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
					"method":     c.Request().Method,
					"route":      c.Path(),
					"status":     c.Response().Status,
				}).Debug("local api request")
			}
			return err
		}
	}
}
