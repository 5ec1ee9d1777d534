package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-shop/app/auth"
	"github.com/vibast-solutions/ms-go-shop/app/bot"
	"github.com/vibast-solutions/ms-go-shop/app/controller"
	shopgrpc "github.com/vibast-solutions/ms-go-shop/app/grpc"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/config"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

var withoutBot bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the HTTP (Echo) and gRPC servers and, when a bot token is configured, the Telegram bot.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&withoutBot, "no-bot", false, "Do not start the Telegram bot even if a token is configured")
}

type controllers struct {
	payments *controller.PaymentController
	webhooks *controller.WebhookController
	orders   *controller.OrderController
	admin    *controller.AdminController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shopBot *bot.Bot
	if !withoutBot && cfg.Telegram.BotToken != "" {
		shopBot = mustCreateBot(cfg, svc)
	}

	sessions := auth.NewSessionManager(cfg.Admin)
	ctrls := &controllers{
		payments: controller.NewPaymentController(svc.payments),
		webhooks: controller.NewWebhookController(svc.payments),
		orders:   controller.NewOrderController(svc.orders, svc.payments, cfg.App.ServerURL, shopBot != nil),
		admin:    controller.NewAdminController(svc.orders, sessions),
	}

	e := setupHTTPServer(cfg, ctrls, sessions)
	grpcSrv, lis := setupGRPCServer(cfg, shopgrpc.NewServer(svc.payments))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		return grpcSrv.Serve(lis)
	})

	if shopBot != nil {
		g.Go(func() error {
			logrus.Info("Starting Telegram bot")
			return shopBot.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("HTTP shutdown error")
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Server error")
	}
	logrus.Info("Server stopped")
}

func setupHTTPServer(cfg *config.Config, ctrls *controllers, sessions *auth.SessionManager) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", ctrls.payments.Health)
	e.GET("/success", ctrls.payments.PaymentReturn)
	e.GET("/payment/success", ctrls.payments.PaymentReturn)
	e.GET("/payment/fail", ctrls.payments.PaymentReturn)
	e.GET("/fail", ctrls.payments.PaymentReturn)

	for _, prefix := range []string{"/api/payments", "/payments"} {
		payments := e.Group(prefix)
		payments.POST("/create", ctrls.payments.CreatePayment)
		payments.GET("/status/:orderId/:provider", ctrls.payments.GetPaymentStatus)
	}

	webhooks := e.Group("/webhooks")
	webhooks.POST("/tinkoff", ctrls.webhooks.Tinkoff)
	webhooks.POST("/yoomoney", ctrls.webhooks.YooMoney)
	webhooks.POST("/telegram", ctrls.webhooks.Telegram)
	webhooks.POST("/payments", ctrls.webhooks.Generic)
	webhooks.POST("/general", ctrls.webhooks.Generic)
	webhooks.POST("/bot", ctrls.webhooks.Bot)

	api := e.Group("/api", auth.RequireAPIKey(cfg.App))
	api.GET("/orders", ctrls.orders.ListOrders)
	api.POST("/orders", ctrls.orders.CreateOrder)
	api.GET("/orders/search", ctrls.orders.SearchOrders)
	api.GET("/orders/:id", ctrls.orders.GetOrder)
	api.POST("/orders/:id/pay", ctrls.orders.PayOrder)
	api.GET("/orders/:id/events", ctrls.orders.ListPaymentEvents)
	api.POST("/payments/yookassa/link", ctrls.orders.CreateWalletLink)
	api.POST("/payments/yookassa/qr", ctrls.orders.CreateWalletQR)
	api.GET("/status", ctrls.orders.Status)
	api.GET("/providers", ctrls.payments.Providers)

	admin := e.Group("/admin")
	admin.POST("/login", ctrls.admin.Login)
	admin.POST("/logout", ctrls.admin.Logout)
	admin.GET("", ctrls.admin.Dashboard, sessions.RequireAdmin())
	admin.DELETE("/orders/:id", ctrls.admin.DeleteOrder, sessions.RequireAdmin())

	return e
}

func setupGRPCServer(cfg *config.Config, paymentsServer *shopgrpc.Server) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			shopgrpc.RecoveryInterceptor(),
			shopgrpc.RequestIDInterceptor(),
			shopgrpc.LoggingInterceptor(),
		),
	)
	shopgrpc.RegisterPaymentsServer(grpcSrv, paymentsServer)

	return grpcSrv, lis
}

func mustCreateBot(cfg *config.Config, svc *services) *bot.Bot {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize Telegram bot")
	}
	logrus.WithField("username", api.Self.UserName).Info("Telegram bot authorized")

	return bot.New(api, svc.orders, svc.payments, bot.Config{
		ServerURL:       cfg.App.ServerURL,
		DefaultProvider: defaultBotProvider(svc.payments.Providers()),
	})
}

// defaultBotProvider prefers in-chat invoices when they are enabled.
func defaultBotProvider(tags []string) string {
	for _, tag := range tags {
		if tag == provider.TagTelegram {
			return tag
		}
	}
	if len(tags) > 0 {
		return tags[0]
	}
	return provider.TagTelegram
}
