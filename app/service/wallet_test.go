package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
)

type walletServer struct {
	mu      sync.Mutex
	amounts []string
	labels  []string
	srv     *httptest.Server
}

func newWalletServer(t *testing.T) *walletServer {
	t.Helper()
	ws := &walletServer{}
	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/request-payment":
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			ws.mu.Lock()
			ws.amounts = append(ws.amounts, r.PostForm.Get("amount"))
			ws.labels = append(ws.labels, r.PostForm.Get("label"))
			ws.mu.Unlock()
			_, _ = w.Write([]byte(`{"status":"success","request_id":"req-77"}`))
		case "/process-payment":
			_, _ = w.Write([]byte(`{"status":"success","payment_id":"pay-77"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ws.srv.Close)
	return ws
}

func newWalletService(t *testing.T, apiURL string, orders *fakeOrderStore, events *fakeEventStore) *PaymentService {
	t.Helper()
	wallet, err := provider.NewYooMoneyProvider(provider.YooMoneyConfig{
		AccessToken:  "wallet-token",
		WalletNumber: "410011234567890",
		APIURL:       apiURL,
		ServerURL:    "https://shop.example",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return newTestPaymentService(orders, events, wallet)
}

func TestCreateWalletLink(t *testing.T) {
	ws := newWalletServer(t)
	events := &fakeEventStore{}
	svc := newWalletService(t, ws.srv.URL, newFakeOrderStore(), events)

	result, err := svc.CreateWalletLink(context.Background(), WalletPaymentInput{
		OrderID:    "order-link-1",
		Amount:     decimal.RequireFromString("250.5"),
		SuccessURL: "https://shop.example/payment/success",
		FailURL:    "https://shop.example/payment/fail",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Provider != provider.TagYooMoney || result.ProviderPaymentID != "req-77" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.PaymentURL != "https://shop.example/success?order_id=order-link-1" {
		t.Fatalf("unexpected payment url: %s", result.PaymentURL)
	}
	if result.QRURL != "" {
		t.Fatalf("link payment must not carry a qr url: %s", result.QRURL)
	}
	if len(ws.amounts) != 1 || ws.amounts[0] != "250.50" || ws.labels[0] != "order-link-1" {
		t.Fatalf("unexpected wallet request: amounts=%v labels=%v", ws.amounts, ws.labels)
	}
	if len(events.events) != 1 || events.events[0].EventType != "payment_created" {
		t.Fatalf("expected payment_created event, got %+v", events.events)
	}
}

func TestCreateWalletQRUsesStoredTotal(t *testing.T) {
	ws := newWalletServer(t)
	orders := newFakeOrderStore()
	orders.put(pendingOrder("order-qr-1", 7000))
	svc := newWalletService(t, ws.srv.URL, orders, &fakeEventStore{})

	result, err := svc.CreateWalletQR(context.Background(), WalletPaymentInput{
		OrderID:    "order-qr-1",
		SuccessURL: "https://shop.example/success",
		FailURL:    "https://shop.example/fail",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.QRURL != "https://yoomoney.ru/transfer/quickpay?requestId=req-77" {
		t.Fatalf("unexpected qr url: %s", result.QRURL)
	}
	if len(ws.amounts) != 1 || ws.amounts[0] != "7000.00" {
		t.Fatalf("expected stored total to be charged, got %v", ws.amounts)
	}
	if orders.get("order-qr-1").PaymentMethod != provider.TagYooMoney {
		t.Fatalf("expected payment method to be recorded")
	}
}

func TestCreateWalletPaymentValidation(t *testing.T) {
	ws := newWalletServer(t)
	svc := newWalletService(t, ws.srv.URL, newFakeOrderStore(), &fakeEventStore{})

	cases := []struct {
		name string
		in   WalletPaymentInput
		want error
	}{
		{name: "missing order id", in: WalletPaymentInput{Amount: decimal.NewFromInt(10), SuccessURL: "s", FailURL: "f"}, want: ErrInvalidRequest},
		{name: "unknown order without amount", in: WalletPaymentInput{OrderID: "missing", SuccessURL: "s", FailURL: "f"}, want: ErrInvalidAmount},
		{name: "sub-kopeck amount", in: WalletPaymentInput{OrderID: "o", Amount: decimal.RequireFromString("0.001"), SuccessURL: "s", FailURL: "f"}, want: ErrInvalidAmountPrecision},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateWalletQR(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(ws.amounts) != 0 {
		t.Fatalf("expected no wallet calls, got %v", ws.amounts)
	}
}

func TestCreateWalletLinkWithoutWalletProvider(t *testing.T) {
	svc := newTestPaymentService(newFakeOrderStore(), &fakeEventStore{}, &fakeProvider{tag: provider.TagTinkoff})

	_, err := svc.CreateWalletLink(context.Background(), WalletPaymentInput{OrderID: "o", Amount: decimal.NewFromInt(10), SuccessURL: "s", FailURL: "f"})
	if !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
}
