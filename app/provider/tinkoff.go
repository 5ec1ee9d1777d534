package provider

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTinkoffAPIURL = "https://securepay.tinkoff.ru/v2"

type TinkoffConfig struct {
	TerminalKey         string
	Password            string
	APIURL              string
	VerifyNotifications bool
	HTTPTimeout         time.Duration
	Retries             int
}

type TinkoffProvider struct {
	cfg    TinkoffConfig
	client *resty.Client
}

func NewTinkoffProvider(cfg TinkoffConfig) (*TinkoffProvider, error) {
	cfg.TerminalKey = strings.TrimSpace(cfg.TerminalKey)
	cfg.Password = strings.TrimSpace(cfg.Password)
	if cfg.TerminalKey == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: tinkoff terminal key and password are required", ErrMissingCredentials)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = defaultTinkoffAPIURL
	}

	return &TinkoffProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.HTTPTimeout, cfg.Retries),
	}, nil
}

func (p *TinkoffProvider) Tag() string {
	return TagTinkoff
}

type tinkoffInitResponse struct {
	Success    bool       `json:"Success"`
	ErrorCode  string     `json:"ErrorCode"`
	Message    string     `json:"Message"`
	Details    string     `json:"Details"`
	PaymentID  flexString `json:"PaymentId"`
	PaymentURL string     `json:"PaymentURL"`
	Status     string     `json:"Status"`
}

func (p *TinkoffProvider) CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentResult, error) {
	params := map[string]any{
		"TerminalKey": p.cfg.TerminalKey,
		"Amount":      minorUnits(req.Amount),
		"OrderId":     req.OrderID,
		"Description": req.Description,
		"SuccessURL":  req.SuccessURL,
		"FailURL":     req.FailURL,
	}
	params["Token"] = tinkoffToken(params, p.cfg.Password)

	var payload tinkoffInitResponse
	if err := p.post(ctx, "init", "/Init", params, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, &ProviderError{
			Provider: TagTinkoff,
			Op:       "init",
			Message:  tinkoffErrorText(payload.ErrorCode, payload.Message, payload.Details),
		}
	}
	if strings.TrimSpace(payload.PaymentURL) == "" {
		return nil, &ProviderError{Provider: TagTinkoff, Op: "init", Message: "response has no PaymentURL"}
	}

	return &PaymentResult{
		OrderID:           req.OrderID,
		Provider:          TagTinkoff,
		PaymentURL:        strings.TrimSpace(payload.PaymentURL),
		ProviderPaymentID: string(payload.PaymentID),
		Status:            StatusPending,
	}, nil
}

type tinkoffCheckOrderResponse struct {
	Success   bool   `json:"Success"`
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
	Details   string `json:"Details"`
	OrderID   string `json:"OrderId"`
	Payments  []struct {
		PaymentID flexString `json:"PaymentId"`
		Amount    flexString `json:"Amount"`
		Status    string     `json:"Status"`
	} `json:"Payments"`
}

func (p *TinkoffProvider) CheckStatus(ctx context.Context, orderID string) (*Outcome, error) {
	params := map[string]any{
		"TerminalKey": p.cfg.TerminalKey,
		"OrderId":     orderID,
	}
	params["Token"] = tinkoffToken(params, p.cfg.Password)

	var payload tinkoffCheckOrderResponse
	if err := p.post(ctx, "check_order", "/CheckOrder", params, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, &ProviderError{
			Provider: TagTinkoff,
			Op:       "check_order",
			Message:  tinkoffErrorText(payload.ErrorCode, payload.Message, payload.Details),
		}
	}

	if len(payload.Payments) == 0 {
		outcome := unknownOutcome(TagTinkoff, nil, "no payment attempts for order")
		outcome.OrderID = orderID
		return outcome, nil
	}

	// the last attempt is the one that matters
	last := payload.Payments[len(payload.Payments)-1]
	status := mapTinkoffStatus(last.Status)
	outcome := &Outcome{
		OrderID:        orderID,
		PaymentID:      string(last.PaymentID),
		Currency:       "RUB",
		Status:         status,
		ProviderStatus: last.Status,
		Provider:       TagTinkoff,
		Processed:      status != StatusUnknown,
	}
	outcome.Amount = fromMinorUnits(parseDecimal(string(last.Amount)))
	return outcome, nil
}

func (p *TinkoffProvider) ParseWebhook(raw []byte) *Outcome {
	obj, ok := decodeObject(raw)
	if !ok {
		return unknownOutcome(TagTinkoff, raw, "payload is not a JSON object")
	}

	orderID := stringField(obj, "OrderId")
	rawStatus := stringField(obj, "Status")
	if orderID == "" || rawStatus == "" {
		return unknownOutcome(TagTinkoff, raw, "notification has no OrderId or Status")
	}

	if p.cfg.VerifyNotifications && !p.verifyNotification(obj) {
		outcome := unknownOutcome(TagTinkoff, raw, "notification token mismatch")
		outcome.OrderID = orderID
		return outcome
	}

	status := mapTinkoffStatus(rawStatus)
	return &Outcome{
		OrderID:        orderID,
		PaymentID:      stringField(obj, "PaymentId"),
		Amount:         fromMinorUnits(decimalField(obj, "Amount")),
		Currency:       "RUB",
		Status:         status,
		ProviderStatus: rawStatus,
		Provider:       TagTinkoff,
		Processed:      status != StatusUnknown,
		Raw:            raw,
	}
}

func (p *TinkoffProvider) verifyNotification(obj map[string]any) bool {
	got := stringField(obj, "Token")
	if got == "" {
		return false
	}
	expected := tinkoffToken(obj, p.cfg.Password)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(expected)) == 1
}

func (p *TinkoffProvider) post(ctx context.Context, op, path string, body map[string]any, out any) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(p.cfg.APIURL + path)
	if err != nil {
		return &ProviderError{Provider: TagTinkoff, Op: op, Err: err}
	}
	if resp.IsError() {
		return &ProviderError{
			Provider:   TagTinkoff,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Body:       truncateBody(resp.Body()),
		}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &ProviderError{
			Provider:   TagTinkoff,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Message:    "unreadable response",
			Body:       truncateBody(resp.Body()),
			Err:        err,
		}
	}
	return nil
}

// tinkoffToken signs root-level scalar params: add Password, sort by key,
// concatenate values, sha256.
func tinkoffToken(params map[string]any, password string) string {
	values := make(map[string]string, len(params)+1)
	for key, value := range params {
		if key == "Token" {
			continue
		}
		switch v := value.(type) {
		case map[string]any, []any, nil:
			continue
		case json.Number:
			values[key] = v.String()
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	values["Password"] = password

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(values[key])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func mapTinkoffStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CONFIRMED":
		return StatusPaid
	case "REJECTED", "CANCELED", "REVERSED", "DEADLINE_EXPIRED", "AUTH_FAIL":
		return StatusFailed
	case "NEW", "FORM_SHOWED", "AUTHORIZING", "3DS_CHECKING", "3DS_CHECKED", "AUTHORIZED", "CONFIRMING":
		return StatusPending
	default:
		return StatusUnknown
	}
}

func tinkoffErrorText(code, message, details string) string {
	parts := make([]string, 0, 3)
	if code != "" {
		parts = append(parts, "code "+code)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if details != "" {
		parts = append(parts, details)
	}
	if len(parts) == 0 {
		return "request was not successful"
	}
	return strings.Join(parts, ": ")
}
