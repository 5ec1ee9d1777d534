package provider

// DetectProvider guesses the provider from the payload shape. It is best-effort:
// provider-specific routes or an explicit header should be preferred.
// Legacy {event, object} envelopes and wallet notifications both belong to the
// wallet adapter, which is also the fallback.
func DetectProvider(raw []byte) string {
	obj, ok := decodeObject(raw)
	if !ok {
		return TagYooMoney
	}

	switch {
	case findSuccessfulPayment(obj) != nil:
		return TagTelegram
	case hasField(obj, "TerminalKey"):
		return TagTinkoff
	default:
		return TagYooMoney
	}
}
