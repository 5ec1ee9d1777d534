package factory

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func NewModuleLogger(module string) *logrus.Entry {
	return logrus.WithField("module", module)
}

// LoggerWithContext tags the entry with the request id echo assigned or the caller sent.
func LoggerWithContext(logger *logrus.Entry, ctx echo.Context) *logrus.Entry {
	if ctx == nil {
		return logger
	}

	requestID := strings.TrimSpace(ctx.Response().Header().Get(echo.HeaderXRequestID))
	if requestID == "" {
		requestID = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}

	entry := logger.WithFields(logrus.Fields{
		"method": ctx.Request().Method,
		"path":   ctx.Path(),
	})
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return entry
}
