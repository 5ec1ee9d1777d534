package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/mapper"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         *logrus.Entry
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// PaymentReturn answers the redirect targets handed to providers. The order
// state itself arrives by webhook.
func (c *PaymentController) PaymentReturn(ctx echo.Context) error {
	message := "Payment received, the order status will update shortly"
	if strings.HasSuffix(ctx.Path(), "/fail") {
		message = "Payment was not completed"
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Success: true, Message: message})
}

func (c *PaymentController) Providers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.ProvidersResponse{Success: true, Providers: c.paymentService.Providers()})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.CreatePayment(ctx.Request().Context(), service.CreatePaymentInput{
		Provider:    req.Provider,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		SuccessURL:  req.SuccessURL,
		FailURL:     req.FailURL,
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create payment")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Success: true, Payment: mapper.PaymentResultToResponse(result)})
}

func (c *PaymentController) GetPaymentStatus(ctx echo.Context) error {
	req := types.NewPaymentStatusRequestFromContext(ctx)

	outcome, err := c.paymentService.CheckPaymentStatus(ctx.Request().Context(), req.OrderID, req.Provider)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Check payment status")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentStatusResponse{Success: true, Status: mapper.OutcomeToResponse(outcome)})
}
