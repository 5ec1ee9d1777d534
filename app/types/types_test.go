package types

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func TestNewCreatePaymentRequestFromContextAcceptsStringAmount(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/payments/create", bytes.NewBufferString(`{"provider":" tinkoff ","amount":"150.50","currency":"rub","description":"Portrait","successUrl":"https://a/ok","failUrl":"https://a/fail"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.Provider != "tinkoff" {
		t.Fatalf("expected trimmed provider, got %q", parsed.Provider)
	}
	if !parsed.Amount.Equal(decimal.RequireFromString("150.50")) {
		t.Fatalf("unexpected amount: %s", parsed.Amount)
	}
	if parsed.Currency != "RUB" {
		t.Fatalf("expected upper-cased currency, got %q", parsed.Currency)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Currency = "RUBLES"
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected currency validation error")
	}
}

func TestReadWebhookBodyConvertsForm(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/webhooks/yoomoney", bytes.NewBufferString("notification_type=p2p-incoming&operation_id=op1&amount=100.00&label=order-1"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm+"; charset=utf-8")
	ctx := e.NewContext(req, httptest.NewRecorder())

	raw, err := ReadWebhookBody(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("expected JSON object, got %s", raw)
	}
	if got["operation_id"] != "op1" || got["label"] != "order-1" || got["amount"] != "100.00" {
		t.Fatalf("unexpected converted body: %v", got)
	}
}

func TestReadWebhookBodyKeepsJSON(t *testing.T) {
	e := echo.New()
	body := `{"TerminalKey":"term","OrderId":"order-1"}`
	req := httptest.NewRequest("POST", "/webhooks/tinkoff", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := e.NewContext(req, httptest.NewRecorder())

	raw, err := ReadWebhookBody(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(raw) != body {
		t.Fatalf("expected body untouched, got %s", raw)
	}
}

func TestNewListOrdersRequestFromContextAndValidate(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/api/orders?payment_status=PAID&limit=20&offset=3", nil)
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewListOrdersRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.PaymentStatus != "paid" || parsed.Limit != 20 || parsed.Offset != 3 {
		t.Fatalf("unexpected parse: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Limit = 501
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected limit validation error")
	}
}

func TestNewListOrdersRequestRejectsBadLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/api/orders?limit=abc", nil)
	ctx := e.NewContext(req, httptest.NewRecorder())

	if _, err := NewListOrdersRequestFromContext(ctx); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSearchOrdersValidate(t *testing.T) {
	if err := (&SearchOrdersRequest{}).Validate(); err == nil {
		t.Fatal("expected error when no criteria given")
	}
	if err := (&SearchOrdersRequest{Email: "a@b.co", Phone: "123"}).Validate(); err == nil {
		t.Fatal("expected error when both criteria given")
	}
	if err := (&SearchOrdersRequest{Phone: "+7 999"}).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewPayOrderRequestDefaultsRedirects(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/orders/order-1/pay", bytes.NewBufferString(`{"provider":"yoomoney"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := e.NewContext(req, httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues("order-1")

	parsed, err := NewPayOrderRequestFromContext(ctx, "https://shop.example")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.SuccessURL != "https://shop.example/payment/success?order_id=order-1" {
		t.Fatalf("unexpected success url: %s", parsed.SuccessURL)
	}
	if parsed.FailURL != "https://shop.example/payment/fail?order_id=order-1" {
		t.Fatalf("unexpected fail url: %s", parsed.FailURL)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCreateOrderValidate(t *testing.T) {
	if err := (&CreateOrderRequest{}).Validate(); err == nil {
		t.Fatal("expected email validation error")
	}
	if err := (&CreateOrderRequest{Email: "a@b.co"}).Validate(); err == nil {
		t.Fatal("expected items validation error")
	}
	req := &CreateOrderRequest{Email: "a@b.co", TotalAmount: decimal.NewFromInt(10)}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
