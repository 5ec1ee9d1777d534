package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTag(t *testing.T) {
	require.Equal(t, TagTinkoff, NormalizeTag("bank-card"))
	require.Equal(t, TagTinkoff, NormalizeTag(" Tinkoff "))
	require.Equal(t, TagYooMoney, NormalizeTag("yoomoney"))
	require.Equal(t, TagYooMoney, NormalizeTag("wallet-transfer"))
	require.Equal(t, TagYooMoney, NormalizeTag("yookassa"))
	require.Equal(t, TagTelegram, NormalizeTag("in-chat"))
	require.Equal(t, "paypal", NormalizeTag("PayPal"))
}

func TestRegistry(t *testing.T) {
	telegram, err := NewTelegramProvider(TelegramConfig{PaymentProviderToken: "p"})
	require.NoError(t, err)
	tinkoff, err := NewTinkoffProvider(TinkoffConfig{TerminalKey: "term", Password: "secret"})
	require.NoError(t, err)

	registry := NewRegistry(telegram, tinkoff)
	require.Equal(t, []string{TagTelegram, TagTinkoff}, registry.Tags())

	got, err := registry.Get("bank-card")
	require.NoError(t, err)
	require.Equal(t, TagTinkoff, got.Tag())

	_, err = registry.Get("yoomoney")
	require.ErrorIs(t, err, ErrProviderNotSupported)

	_, err = registry.Get("")
	require.ErrorIs(t, err, ErrProviderNotSupported)
}
