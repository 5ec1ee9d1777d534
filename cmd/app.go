package cmd

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/config"
)

type services struct {
	orders   *service.OrderService
	payments *service.PaymentService
}

func configureLogging(cfg *config.Config) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)
	return nil
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDatabase(cfg *config.Config) *sqlx.DB {
	db, err := repository.Open(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	return db
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg := mustLoadConfig()

	registry, err := newProviderRegistry(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure payment providers")
	}

	db := mustOpenDatabase(cfg)

	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	svc := &services{
		orders:   service.NewOrderService(orderRepo, userRepo, eventRepo),
		payments: service.NewPaymentService(orderRepo, eventRepo, registry, cfg.Payments),
	}

	logrus.WithField("providers", registry.Tags()).Info("Payment providers ready")

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svc, cleanup
}

// newProviderRegistry builds every enabled adapter once. An enabled provider
// with missing credentials is an error.
func newProviderRegistry(cfg *config.Config) (*provider.Registry, error) {
	adapters := make([]provider.Provider, 0, len(cfg.Payments.EnabledProviders))
	seen := map[string]bool{}

	for _, raw := range cfg.Payments.EnabledProviders {
		tag := provider.NormalizeTag(raw)
		if seen[tag] {
			continue
		}
		seen[tag] = true

		var (
			adapter provider.Provider
			err     error
		)
		switch tag {
		case provider.TagTinkoff:
			adapter, err = provider.NewTinkoffProvider(provider.TinkoffConfig{
				TerminalKey:         cfg.Tinkoff.TerminalKey,
				Password:            cfg.Tinkoff.Password,
				APIURL:              cfg.Tinkoff.APIURL,
				VerifyNotifications: cfg.Tinkoff.VerifyNotifications,
				HTTPTimeout:         cfg.Payments.HTTPTimeout,
				Retries:             cfg.Payments.HTTPRetries,
			})
		case provider.TagYooMoney:
			adapter, err = provider.NewYooMoneyProvider(provider.YooMoneyConfig{
				AccessToken:        cfg.YooMoney.AccessToken,
				WalletNumber:       cfg.YooMoney.WalletNumber,
				APIURL:             cfg.YooMoney.APIURL,
				ServerURL:          cfg.App.ServerURL,
				NotificationSecret: cfg.YooMoney.NotificationSecret,
				HTTPTimeout:        cfg.Payments.HTTPTimeout,
				Retries:            cfg.Payments.HTTPRetries,
			})
		case provider.TagTelegram:
			adapter, err = provider.NewTelegramProvider(provider.TelegramConfig{
				PaymentProviderToken: cfg.Telegram.PaymentProviderToken,
			})
		default:
			return nil, fmt.Errorf("unknown payment provider %q", raw)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no payment providers enabled")
	}
	return provider.NewRegistry(adapters...), nil
}
