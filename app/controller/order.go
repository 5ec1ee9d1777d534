package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/mapper"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

type OrderController struct {
	orderService   *service.OrderService
	paymentService *service.PaymentService
	serverURL      string
	botRunning     bool
	logger         *logrus.Entry
}

func NewOrderController(orderService *service.OrderService, paymentService *service.PaymentService, serverURL string, botRunning bool) *OrderController {
	return &OrderController{
		orderService:   orderService,
		paymentService: paymentService,
		serverURL:      serverURL,
		botRunning:     botRunning,
		logger:         factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) ListOrders(ctx echo.Context) error {
	req, err := types.NewListOrdersRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.orderService.ListOrders(ctx.Request().Context(), repository.OrderFilter{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List orders")
	}

	return ctx.JSON(http.StatusOK, &types.ListOrdersResponse{Success: true, Orders: mapper.OrdersToResponse(items)})
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.CreateOrder(ctx.Request().Context(), service.CreateOrderInput{
		Email:         req.Email,
		Name:          req.Name,
		Phone:         req.Phone,
		Items:         mapper.OrderItemsFromRequest(req.Items),
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create order")
	}

	return ctx.JSON(http.StatusCreated, &types.OrderEnvelopeResponse{Success: true, Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	order, err := c.orderService.GetOrder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return writeError(ctx, http.StatusNotFound, err.Error())
		}
		return writeServiceError(ctx, c.logger, err, "Get order")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Success: true, Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) SearchOrders(ctx echo.Context) error {
	req := types.NewSearchOrdersRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	var orders []*entity.Order
	var err error
	if req.Email != "" {
		orders, err = c.orderService.FindOrdersByEmail(ctx.Request().Context(), req.Email)
	} else {
		orders, err = c.orderService.FindOrdersByPhone(ctx.Request().Context(), req.Phone)
	}
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Search orders")
	}

	return ctx.JSON(http.StatusOK, &types.ListOrdersResponse{Success: true, Orders: mapper.OrdersToResponse(orders)})
}

func (c *OrderController) PayOrder(ctx echo.Context) error {
	req, err := types.NewPayOrderRequestFromContext(ctx, c.serverURL)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.PayOrder(ctx.Request().Context(), req.OrderID, req.Provider, req.SuccessURL, req.FailURL)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return writeError(ctx, http.StatusNotFound, err.Error())
		}
		return writeServiceError(ctx, c.logger, err, "Pay order")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Success: true, Payment: mapper.PaymentResultToResponse(result)})
}

// CreateWalletLink starts a wallet transfer for an order and returns its link.
func (c *OrderController) CreateWalletLink(ctx echo.Context) error {
	return c.createWalletPayment(ctx, false)
}

// CreateWalletQR is CreateWalletLink plus a quickpay link for a QR code.
func (c *OrderController) CreateWalletQR(ctx echo.Context) error {
	return c.createWalletPayment(ctx, true)
}

func (c *OrderController) createWalletPayment(ctx echo.Context, qr bool) error {
	req, err := types.NewWalletPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	in := service.WalletPaymentInput{
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		SuccessURL:  c.serverURL + "/payment/success",
		FailURL:     c.serverURL + "/payment/fail",
	}

	create, op := c.paymentService.CreateWalletLink, "Create wallet link"
	if qr {
		in.SuccessURL = c.serverURL + "/success"
		in.FailURL = c.serverURL + "/fail"
		create, op = c.paymentService.CreateWalletQR, "Create wallet QR"
	}

	result, err := create(ctx.Request().Context(), in)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, op)
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentResultToWalletResponse(result))
}

func (c *OrderController) ListPaymentEvents(ctx echo.Context) error {
	events, err := c.orderService.ListPaymentEvents(ctx.Request().Context(), strings.TrimSpace(ctx.Param("id")))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return writeError(ctx, http.StatusNotFound, err.Error())
		}
		return writeServiceError(ctx, c.logger, err, "List payment events")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentEventsResponse{Success: true, Events: mapper.PaymentEventsToResponse(events)})
}

func (c *OrderController) Status(ctx echo.Context) error {
	status := "Bot is disabled"
	if c.botRunning {
		status = "Bot is running"
	}
	return ctx.JSON(http.StatusOK, &types.BotStatusResponse{
		Success:   true,
		Status:    status,
		Providers: c.paymentService.Providers(),
	})
}
