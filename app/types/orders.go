package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const maxListLimit = 500

type OrderItem struct {
	Category string          `json:"category"`
	Item     string          `json:"item"`
	Price    decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Items         []OrderItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	body.Name = strings.TrimSpace(body.Name)
	body.Phone = strings.TrimSpace(body.Phone)
	body.PaymentMethod = strings.TrimSpace(body.PaymentMethod)
	for i := range body.Items {
		body.Items[i].Category = strings.TrimSpace(body.Items[i].Category)
		body.Items[i].Item = strings.TrimSpace(body.Items[i].Item)
	}

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if len(r.Items) == 0 && !r.TotalAmount.IsPositive() {
		return errors.New("items or total_amount is required")
	}
	return nil
}

type ListOrdersRequest struct {
	Status        string
	PaymentStatus string
	Limit         int32
	Offset        int32
}

func NewListOrdersRequestFromContext(ctx echo.Context) (*ListOrdersRequest, error) {
	req := &ListOrdersRequest{
		Status:        strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		PaymentStatus: strings.ToLower(strings.TrimSpace(ctx.QueryParam("payment_status"))),
		Limit:         100,
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListOrdersRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > maxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

type SearchOrdersRequest struct {
	Email string
	Phone string
}

func NewSearchOrdersRequestFromContext(ctx echo.Context) *SearchOrdersRequest {
	return &SearchOrdersRequest{
		Email: strings.TrimSpace(ctx.QueryParam("email")),
		Phone: strings.TrimSpace(ctx.QueryParam("phone")),
	}
}

func (r *SearchOrdersRequest) Validate() error {
	if r.Email == "" && r.Phone == "" {
		return errors.New("email or phone is required")
	}
	if r.Email != "" && r.Phone != "" {
		return errors.New("search by either email or phone")
	}
	return nil
}

type PayOrderRequest struct {
	OrderID    string `json:"-"`
	Provider   string `json:"provider"`
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
}

// NewPayOrderRequestFromContext fills redirect targets from serverURL when the body omits them.
func NewPayOrderRequestFromContext(ctx echo.Context, serverURL string) (*PayOrderRequest, error) {
	var body PayOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderID = strings.TrimSpace(ctx.Param("id"))
	body.Provider = strings.TrimSpace(body.Provider)
	body.SuccessURL = strings.TrimSpace(body.SuccessURL)
	body.FailURL = strings.TrimSpace(body.FailURL)
	if body.SuccessURL == "" {
		body.SuccessURL = serverURL + "/payment/success?order_id=" + body.OrderID
	}
	if body.FailURL == "" {
		body.FailURL = serverURL + "/payment/fail?order_id=" + body.OrderID
	}

	return &body, nil
}

func (r *PayOrderRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order id is required")
	}
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	return nil
}

type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type OrderDetails struct {
	Items       []OrderItem `json:"items"`
	ContactInfo ContactInfo `json:"contact_info"`
}

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OrderDetails  OrderDetails    `json:"order_details"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type OrderEnvelopeResponse struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order"`
}

type ListOrdersResponse struct {
	Success bool     `json:"success"`
	Orders  []*Order `json:"orders"`
}

type PaymentEvent struct {
	ID                uint64  `json:"id"`
	OrderID           string  `json:"order_id"`
	Provider          string  `json:"provider,omitempty"`
	EventType         string  `json:"event_type"`
	OldPaymentStatus  string  `json:"old_payment_status,omitempty"`
	NewPaymentStatus  string  `json:"new_payment_status"`
	ProviderPaymentID string  `json:"provider_payment_id,omitempty"`
	Payload           *string `json:"payload,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

type ListPaymentEventsResponse struct {
	Success bool            `json:"success"`
	Events  []*PaymentEvent `json:"events"`
}

type BotStatusResponse struct {
	Success   bool     `json:"success"`
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
}
