package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/mapper"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

type WebhookController struct {
	paymentService *service.PaymentService
	logger         *logrus.Entry
}

func NewWebhookController(paymentService *service.PaymentService) *WebhookController {
	return &WebhookController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("webhooks-controller"),
	}
}

func (c *WebhookController) Tinkoff(ctx echo.Context) error {
	return c.handle(ctx, provider.TagTinkoff)
}

func (c *WebhookController) YooMoney(ctx echo.Context) error {
	return c.handle(ctx, provider.TagYooMoney)
}

func (c *WebhookController) Telegram(ctx echo.Context) error {
	return c.handle(ctx, provider.TagTelegram)
}

// Generic serves the shared endpoints: the X-Provider header wins, otherwise
// the payload shape decides.
func (c *WebhookController) Generic(ctx echo.Context) error {
	return c.handle(ctx, types.ProviderHintFromContext(ctx))
}

// Bot accepts raw Telegram updates. Only successful payments change state;
// every other update is acknowledged.
func (c *WebhookController) Bot(ctx echo.Context) error {
	raw, err := types.ReadWebhookBody(ctx)
	if err != nil || len(raw) == 0 {
		return writeError(ctx, http.StatusBadRequest, "Missing update data")
	}
	if provider.DetectProvider(raw) != provider.TagTelegram {
		factory.LoggerWithContext(c.logger, ctx).Debug("bot update acknowledged")
		return ctx.String(http.StatusOK, "OK")
	}
	return c.process(ctx, raw, provider.TagTelegram)
}

func (c *WebhookController) handle(ctx echo.Context, hint string) error {
	raw, err := types.ReadWebhookBody(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid webhook data")
	}
	return c.process(ctx, raw, hint)
}

func (c *WebhookController) process(ctx echo.Context, raw []byte, hint string) error {
	outcome, err := c.paymentService.ProcessWebhook(ctx.Request().Context(), raw, hint)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Process webhook")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"provider":  outcome.Provider,
		"order_id":  outcome.OrderID,
		"status":    string(outcome.Status),
		"processed": outcome.Processed,
	}).Info("webhook_processed")

	return ctx.JSON(http.StatusOK, &types.WebhookResponse{Success: true, Result: mapper.OutcomeToResponse(outcome)})
}
