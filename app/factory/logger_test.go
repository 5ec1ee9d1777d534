package factory

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewModuleLogger(t *testing.T) {
	logger := NewModuleLogger("payment-controller")
	if logger == nil {
		t.Fatal("expected logger")
	}
	if logger.Data["module"] != "payment-controller" {
		t.Fatalf("expected module field, got %v", logger.Data)
	}
}

func TestLoggerWithContextAddsRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	logger := LoggerWithContext(NewModuleLogger("payment-controller"), ctx)
	if logger == nil {
		t.Fatal("expected logger with context")
	}
	if logger.Data["request_id"] != "req-123" {
		t.Fatalf("expected request_id field, got %v", logger.Data)
	}
	if logger.Data["method"] != "GET" {
		t.Fatalf("expected method field, got %v", logger.Data)
	}
}

func TestLoggerWithContextPrefersResponseRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/webhooks/tinkoff", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Response().Header().Set(echo.HeaderXRequestID, "generated-1")

	logger := LoggerWithContext(NewModuleLogger("webhook-controller"), ctx)
	if logger.Data["request_id"] != "generated-1" {
		t.Fatalf("expected generated request id, got %v", logger.Data)
	}
}
