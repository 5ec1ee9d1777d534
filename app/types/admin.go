package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Username = strings.TrimSpace(body.Username)
	return &body, nil
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return errors.New("username and password are required")
	}
	return nil
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

type DashboardStats struct {
	TotalOrders   int64           `json:"total_orders"`
	PendingOrders int64           `json:"pending_orders"`
	PaidOrders    int64           `json:"paid_orders"`
	FailedOrders  int64           `json:"failed_orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	TotalUsers    int64           `json:"total_users"`
}

type DashboardResponse struct {
	Success      bool           `json:"success"`
	Stats        DashboardStats `json:"stats"`
	RecentOrders []*Order       `json:"recent_orders"`
	RecentUsers  []*User        `json:"recent_users"`
}
