package provider

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultYooMoneyAPIURL = "https://yoomoney.ru/api"
	yooMoneyQuickpayURL   = "https://yoomoney.ru/transfer/quickpay"
)

var yooMoneyRequestIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`request_id=([^;&"\s]+)`),
	regexp.MustCompile(`"request_id"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`name="request_id"\s+value="([^"]+)"`),
}

type YooMoneyConfig struct {
	AccessToken        string
	WalletNumber       string
	APIURL             string
	ServerURL          string
	NotificationSecret string
	HTTPTimeout        time.Duration
	Retries            int
}

type YooMoneyProvider struct {
	cfg    YooMoneyConfig
	client *resty.Client
	// handshake requests move money and are never retried
	handshake *resty.Client
}

func NewYooMoneyProvider(cfg YooMoneyConfig) (*YooMoneyProvider, error) {
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	cfg.WalletNumber = strings.TrimSpace(cfg.WalletNumber)
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.AccessToken == "" || cfg.WalletNumber == "" {
		return nil, fmt.Errorf("%w: yoomoney access token and wallet number are required", ErrMissingCredentials)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: server url is required to build yoomoney return links", ErrMissingCredentials)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = defaultYooMoneyAPIURL
	}

	return &YooMoneyProvider{
		cfg:       cfg,
		client:    newHTTPClient(cfg.HTTPTimeout, cfg.Retries),
		handshake: newHTTPClient(cfg.HTTPTimeout, 0),
	}, nil
}

func (p *YooMoneyProvider) Tag() string {
	return TagYooMoney
}

type yooMoneyProcessResponse struct {
	Status    string     `json:"status"`
	Error     string     `json:"error"`
	PaymentID flexString `json:"payment_id"`
}

// CreatePayment runs the request-payment / process-payment handshake.
func (p *YooMoneyProvider) CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentResult, error) {
	resp, err := p.handshake.R().
		SetContext(ctx).
		SetAuthToken(p.cfg.AccessToken).
		SetFormData(map[string]string{
			"pattern_id": "p2p",
			"to":         p.cfg.WalletNumber,
			"amount":     req.Amount.StringFixed(2),
			"comment":    fmt.Sprintf("Order %s: %s", req.OrderID, req.Description),
			"message":    req.Description,
			"label":      req.OrderID,
		}).
		Post(p.cfg.APIURL + "/request-payment")
	if err != nil {
		return nil, &ProviderError{Provider: TagYooMoney, Op: "request_payment", Err: err}
	}
	if resp.IsError() {
		return nil, &ProviderError{
			Provider:   TagYooMoney,
			Op:         "request_payment",
			StatusCode: resp.StatusCode(),
			Message:    yooMoneyErrorText(resp.Body()),
			Body:       truncateBody(resp.Body()),
		}
	}
	if obj, ok := decodeObject(resp.Body()); ok && stringField(obj, "status") == "refused" {
		return nil, &ProviderError{
			Provider: TagYooMoney,
			Op:       "request_payment",
			Message:  stringField(obj, "error"),
			Body:     truncateBody(resp.Body()),
		}
	}

	requestID := extractRequestID(string(resp.Body()))
	if requestID == "" {
		return nil, &ProviderError{
			Provider: TagYooMoney,
			Op:       "request_payment",
			Message:  "request_id not found in response",
			Body:     truncateBody(resp.Body()),
		}
	}

	if err := p.processPayment(ctx, requestID); err != nil {
		return nil, err
	}

	return &PaymentResult{
		OrderID:           req.OrderID,
		Provider:          TagYooMoney,
		PaymentURL:        p.cfg.ServerURL + "/success?order_id=" + url.QueryEscape(req.OrderID),
		ProviderPaymentID: requestID,
		Status:            StatusPending,
	}, nil
}

// YooMoneyQRURL is the wallet app link for a started transfer, meant to be rendered as a QR code.
func YooMoneyQRURL(requestID string) string {
	return yooMoneyQuickpayURL + "?requestId=" + url.QueryEscape(requestID)
}

func (p *YooMoneyProvider) processPayment(ctx context.Context, requestID string) error {
	ambiguous := func(statusCode int, message string, body []byte, err error) error {
		return &AmbiguousOutcomeError{
			ProviderError: ProviderError{
				Provider:   TagYooMoney,
				Op:         "process_payment",
				StatusCode: statusCode,
				Message:    message,
				Body:       truncateBody(body),
				Err:        err,
			},
			RequestID: requestID,
		}
	}

	resp, err := p.handshake.R().
		SetContext(ctx).
		SetAuthToken(p.cfg.AccessToken).
		SetFormData(map[string]string{"request_id": requestID}).
		Post(p.cfg.APIURL + "/process-payment")
	if err != nil {
		return ambiguous(0, "confirmation was sent but no response was received", nil, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return ambiguous(resp.StatusCode(), "provider failed while confirming", resp.Body(), nil)
	}
	if resp.IsError() {
		return &ProviderError{
			Provider:   TagYooMoney,
			Op:         "process_payment",
			StatusCode: resp.StatusCode(),
			Message:    yooMoneyErrorText(resp.Body()),
			Body:       truncateBody(resp.Body()),
		}
	}

	var payload yooMoneyProcessResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return ambiguous(resp.StatusCode(), "unreadable confirmation response", resp.Body(), err)
	}

	switch payload.Status {
	case "success", "in_progress":
		return nil
	case "refused", "ext_auth_required":
		message := payload.Error
		if message == "" {
			message = payload.Status
		}
		return &ProviderError{
			Provider:   TagYooMoney,
			Op:         "process_payment",
			StatusCode: resp.StatusCode(),
			Message:    message,
			Body:       truncateBody(resp.Body()),
		}
	default:
		return ambiguous(resp.StatusCode(), fmt.Sprintf("unexpected confirmation status %q", payload.Status), resp.Body(), nil)
	}
}

type yooMoneyOperation struct {
	OperationID flexString `json:"operation_id"`
	Status      string     `json:"status"`
	Label       string     `json:"label"`
	Amount      flexString `json:"amount"`
	Direction   string     `json:"direction"`
}

func (p *YooMoneyProvider) CheckStatus(ctx context.Context, orderID string) (*Outcome, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.cfg.AccessToken).
		SetFormData(map[string]string{
			"label":   orderID,
			"records": "10",
		}).
		Post(p.cfg.APIURL + "/operation-history")
	if err != nil {
		return nil, &ProviderError{Provider: TagYooMoney, Op: "operation_history", Err: err}
	}
	if resp.IsError() {
		return nil, &ProviderError{
			Provider:   TagYooMoney,
			Op:         "operation_history",
			StatusCode: resp.StatusCode(),
			Message:    yooMoneyErrorText(resp.Body()),
			Body:       truncateBody(resp.Body()),
		}
	}

	var payload struct {
		Error      string              `json:"error"`
		Operations []yooMoneyOperation `json:"operations"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &ProviderError{
			Provider:   TagYooMoney,
			Op:         "operation_history",
			StatusCode: resp.StatusCode(),
			Message:    "unreadable response",
			Body:       truncateBody(resp.Body()),
			Err:        err,
		}
	}
	if payload.Error != "" {
		return nil, &ProviderError{Provider: TagYooMoney, Op: "operation_history", Message: payload.Error}
	}

	for _, op := range payload.Operations {
		if op.Label != orderID {
			continue
		}
		status := mapYooMoneyStatus(op.Status)
		return &Outcome{
			OrderID:        orderID,
			PaymentID:      string(op.OperationID),
			Amount:         parseDecimal(string(op.Amount)),
			Currency:       "RUB",
			Status:         status,
			ProviderStatus: op.Status,
			Provider:       TagYooMoney,
			Processed:      status != StatusUnknown,
		}, nil
	}

	outcome := unknownOutcome(TagYooMoney, nil, "no operation with this label")
	outcome.OrderID = orderID
	return outcome, nil
}

func (p *YooMoneyProvider) ParseWebhook(raw []byte) *Outcome {
	obj, ok := decodeObject(raw)
	if !ok {
		return unknownOutcome(TagYooMoney, raw, "payload is not a JSON object")
	}

	if hasField(obj, "operation_id") {
		return p.parseWalletNotification(obj, raw)
	}
	if hasField(obj, "event") && hasField(obj, "object") {
		return parseGatewayEvent(obj, raw)
	}
	return unknownOutcome(TagYooMoney, raw, "unrecognized notification shape")
}

func (p *YooMoneyProvider) parseWalletNotification(obj map[string]any, raw []byte) *Outcome {
	operationID := stringField(obj, "operation_id")
	orderID := stringField(obj, "label")
	if orderID == "" {
		orderID = operationID
	}

	if p.cfg.NotificationSecret != "" && !p.verifyNotification(obj) {
		outcome := unknownOutcome(TagYooMoney, raw, "notification sha1_hash mismatch")
		outcome.OrderID = orderID
		return outcome
	}

	rawStatus := stringField(obj, "status")
	var status Status
	switch {
	case rawStatus != "":
		status = mapYooMoneyStatus(rawStatus)
	case stringField(obj, "unaccepted") == "true":
		// incoming transfer held until the recipient accepts it
		status = StatusPending
	case stringField(obj, "notification_type") != "":
		// wallet notifications are only sent for credited transfers
		status = StatusPaid
	default:
		status = StatusUnknown
	}

	return &Outcome{
		OrderID:        orderID,
		PaymentID:      operationID,
		Amount:         decimalField(obj, "amount"),
		Currency:       yooMoneyCurrency(stringField(obj, "currency")),
		Status:         status,
		ProviderStatus: rawStatus,
		Provider:       TagYooMoney,
		Event:          "wallet_operation",
		Processed:      status != StatusUnknown,
		Raw:            raw,
	}
}

// verifyNotification checks sha1 over the documented field order joined with '&'.
func (p *YooMoneyProvider) verifyNotification(obj map[string]any) bool {
	got := strings.ToLower(stringField(obj, "sha1_hash"))
	if got == "" {
		return false
	}
	parts := []string{
		stringField(obj, "notification_type"),
		stringField(obj, "operation_id"),
		stringField(obj, "amount"),
		stringField(obj, "currency"),
		stringField(obj, "datetime"),
		stringField(obj, "sender"),
		stringField(obj, "codepro"),
		p.cfg.NotificationSecret,
		stringField(obj, "label"),
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&")))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// parseGatewayEvent handles the legacy hosted-checkout envelope {event, object}.
func parseGatewayEvent(obj map[string]any, raw []byte) *Outcome {
	event := stringField(obj, "event")
	object := objectField(obj, "object")
	if object == nil {
		return unknownOutcome(TagYooMoney, raw, "event has no object")
	}

	paymentID := stringField(object, "id")
	orderID := stringField(objectField(object, "metadata"), "order_id")
	if orderID == "" {
		orderID = paymentID
	}

	var status Status
	switch event {
	case "payment.succeeded":
		status = StatusPaid
	case "payment.canceled":
		status = StatusFailed
	case "payment.waiting_for_capture":
		status = StatusPending
	default:
		outcome := unknownOutcome(TagYooMoney, raw, "unsupported event "+event)
		outcome.OrderID = orderID
		outcome.Event = event
		return outcome
	}

	outcome := &Outcome{
		OrderID:        orderID,
		PaymentID:      paymentID,
		Status:         status,
		ProviderStatus: stringField(object, "status"),
		Provider:       TagYooMoney,
		Event:          event,
		Processed:      true,
		Raw:            raw,
	}
	if amount := objectField(object, "amount"); amount != nil {
		outcome.Amount = decimalField(amount, "value")
		outcome.Currency = stringField(amount, "currency")
	}
	return outcome
}

func extractRequestID(body string) string {
	for _, pattern := range yooMoneyRequestIDPatterns {
		if match := pattern.FindStringSubmatch(body); len(match) == 2 {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

func mapYooMoneyStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return StatusPaid
	case "refused":
		return StatusFailed
	case "in_progress":
		return StatusPending
	default:
		return StatusUnknown
	}
}

func yooMoneyCurrency(code string) string {
	switch code {
	case "", "643":
		return "RUB"
	default:
		return code
	}
}

func yooMoneyErrorText(body []byte) string {
	obj, ok := decodeObject(body)
	if !ok {
		return ""
	}
	if text := stringField(obj, "error_description"); text != "" {
		return text
	}
	return stringField(obj, "error")
}
