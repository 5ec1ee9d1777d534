package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	GRPC     ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Admin    AdminConfig
	Telegram TelegramConfig
	Tinkoff  TinkoffConfig
	YooMoney YooMoneyConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
	BearerToken string
	// ServerURL is the public base URL used for redirect targets.
	ServerURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type AdminConfig struct {
	Username      string
	Password      string
	SessionSecret string
	SessionTTL    time.Duration
}

type TelegramConfig struct {
	BotToken             string
	PaymentProviderToken string
}

type TinkoffConfig struct {
	TerminalKey         string
	Password            string
	APIURL              string
	VerifyNotifications bool
}

type YooMoneyConfig struct {
	AccessToken        string
	WalletNumber       string
	APIURL             string
	NotificationSecret string
}

type PaymentsConfig struct {
	EnabledProviders    []string
	DefaultCurrency     string
	HTTPTimeout         time.Duration
	HTTPRetries         int
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN environment variable is required")
	}

	driver := strings.ToLower(getEnv("DATABASE_DRIVER", "pgx"))
	if driver != "pgx" && driver != "mysql" {
		return nil, errors.New("DATABASE_DRIVER must be one of: pgx, mysql")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "shop-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
			BearerToken: getEnv("APP_BEARER_TOKEN", ""),
			ServerURL:   strings.TrimRight(getEnv("SERVER_URL", "http://localhost:8080"), "/"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("DATABASE_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Admin: AdminConfig{
			Username:      getEnv("ADMIN_USERNAME", "admin"),
			Password:      getEnv("ADMIN_PASSWORD", ""),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			SessionTTL:    getMinutesEnv("ADMIN_SESSION_TTL_MINUTES", 24*time.Hour),
		},
		Telegram: TelegramConfig{
			BotToken:             getEnv("TELEGRAM_BOT_TOKEN", ""),
			PaymentProviderToken: getEnv("TELEGRAM_PAYMENT_PROVIDER_TOKEN", ""),
		},
		Tinkoff: TinkoffConfig{
			TerminalKey:         getEnv("TINKOFF_TERMINAL_KEY", ""),
			Password:            getEnv("TINKOFF_PASSWORD", ""),
			APIURL:              getEnv("TINKOFF_API_URL", ""),
			VerifyNotifications: getBoolEnv("TINKOFF_VERIFY_NOTIFICATIONS", false),
		},
		YooMoney: YooMoneyConfig{
			AccessToken:        getEnv("YOOMONEY_ACCESS_TOKEN", ""),
			WalletNumber:       getEnv("YOOMONEY_WALLET_NUMBER", ""),
			APIURL:             getEnv("YOOMONEY_API_URL", ""),
			NotificationSecret: getEnv("YOOMONEY_NOTIFICATION_SECRET", ""),
		},
		Payments: PaymentsConfig{
			EnabledProviders:    getListEnv("PAYMENTS_ENABLED_PROVIDERS", []string{"tinkoff", "yoomoney-wallet", "telegram"}),
			DefaultCurrency:     strings.ToUpper(getEnv("PAYMENTS_DEFAULT_CURRENCY", "RUB")),
			HTTPTimeout:         getSecondsEnv("PAYMENTS_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			HTTPRetries:         getIntEnv("PAYMENTS_HTTP_RETRIES", 2),
			PendingTimeout:      getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 24*time.Hour),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 30*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
