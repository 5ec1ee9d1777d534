package cmd

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/config"
)

func TestNewProviderRegistryBuildsEnabledProviders(t *testing.T) {
	cfg := &config.Config{
		App:      config.AppConfig{ServerURL: "https://shop.example"},
		Telegram: config.TelegramConfig{PaymentProviderToken: "token"},
		Tinkoff:  config.TinkoffConfig{TerminalKey: "terminal", Password: "secret"},
		YooMoney: config.YooMoneyConfig{AccessToken: "access", WalletNumber: "4100"},
		Payments: config.PaymentsConfig{EnabledProviders: []string{"bank-card", "tinkoff", "wallet-transfer", "in-chat"}},
	}

	registry, err := newProviderRegistry(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{provider.TagTelegram, provider.TagTinkoff, provider.TagYooMoney}
	if got := registry.Tags(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNewProviderRegistryMissingCredentials(t *testing.T) {
	cfg := &config.Config{
		Payments: config.PaymentsConfig{EnabledProviders: []string{"tinkoff"}},
	}

	_, err := newProviderRegistry(cfg)
	if !errors.Is(err, provider.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestNewProviderRegistryUnknownProvider(t *testing.T) {
	cfg := &config.Config{
		Payments: config.PaymentsConfig{EnabledProviders: []string{"stripe"}},
	}

	if _, err := newProviderRegistry(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderRegistryRequiresOne(t *testing.T) {
	if _, err := newProviderRegistry(&config.Config{}); err == nil {
		t.Fatal("expected error with no providers enabled")
	}
}

func TestDefaultBotProvider(t *testing.T) {
	cases := []struct {
		tags []string
		want string
	}{
		{tags: []string{provider.TagTelegram, provider.TagTinkoff}, want: provider.TagTelegram},
		{tags: []string{provider.TagTinkoff, provider.TagYooMoney}, want: provider.TagTinkoff},
		{tags: nil, want: provider.TagTelegram},
	}

	for _, tc := range cases {
		if got := defaultBotProvider(tc.tags); got != tc.want {
			t.Fatalf("tags %v: expected %s, got %s", tc.tags, tc.want, got)
		}
	}
}

func TestConfigureLoggingRejectsUnknownLevel(t *testing.T) {
	if err := configureLogging(&config.Config{Log: config.LogConfig{Level: "loud"}}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := configureLogging(&config.Config{Log: config.LogConfig{Level: "DEBUG"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	job := batchJob{
		name: "test_job",
		run: func(context.Context, *services) error {
			if runs.Add(1) == 3 {
				cancel()
			}
			return nil
		},
	}

	done := make(chan struct{})
	go func() {
		runWorker(ctx, job, time.Millisecond, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if runs.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", runs.Load())
	}
}
