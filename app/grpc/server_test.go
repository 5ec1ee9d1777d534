package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type grpcOrderRepo struct {
	orders map[string]*entity.Order
}

func (r *grpcOrderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	return r.orders[id], nil
}

func (r *grpcOrderRepo) UpdatePaymentMethod(context.Context, string, string, time.Time) error {
	return nil
}

func (r *grpcOrderRepo) UpdatePaymentStatus(context.Context, string, string, string, time.Time) (bool, error) {
	return true, nil
}

func (r *grpcOrderRepo) Touch(context.Context, string, time.Time) error {
	return nil
}

func (r *grpcOrderRepo) ListForReconcile(context.Context, []string, time.Time, int32) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

func (r *grpcOrderRepo) ListExpiredPending(context.Context, time.Time, int32) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

type grpcEventRepo struct{}

func (grpcEventRepo) Create(context.Context, *entity.PaymentEvent) error {
	return nil
}

func newTestServer(t *testing.T, orders map[string]*entity.Order) *Server {
	t.Helper()
	telegram, err := provider.NewTelegramProvider(provider.TelegramConfig{PaymentProviderToken: "provider-token"})
	if err != nil {
		t.Fatalf("telegram provider: %v", err)
	}
	if orders == nil {
		orders = map[string]*entity.Order{}
	}
	svc := service.NewPaymentService(&grpcOrderRepo{orders: orders}, grpcEventRepo{}, provider.NewRegistry(telegram), config.PaymentsConfig{})
	return NewServer(svc)
}

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	out, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	resp, err := newTestServer(t, nil).Health(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.GetFields()["status"].GetStringValue() != "ok" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestCreatePaymentInvalidProvider(t *testing.T) {
	srv := newTestServer(t, nil)
	_, err := srv.CreatePayment(context.Background(), mustStruct(t, map[string]interface{}{
		"provider":    "stripe",
		"amount":      10,
		"description": "d",
		"successUrl":  "s",
		"failUrl":     "f",
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestCreatePaymentAlreadyPaid(t *testing.T) {
	srv := newTestServer(t, map[string]*entity.Order{
		"order-1": {ID: "order-1", PaymentStatus: entity.PaymentStatusPaid},
	})
	_, err := srv.CreatePayment(context.Background(), mustStruct(t, map[string]interface{}{
		"provider":    "telegram",
		"orderId":     "order-1",
		"amount":      10,
		"description": "d",
		"successUrl":  "s",
		"failUrl":     "f",
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestCreatePaymentReturnsInvoice(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.CreatePayment(context.Background(), mustStruct(t, map[string]interface{}{
		"provider":    "telegram",
		"orderId":     "order-2",
		"amount":      "150.50",
		"description": "Фотосессия",
		"successUrl":  "s",
		"failUrl":     "f",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := resp.GetFields()["payment"].GetStructValue()
	if payment.GetFields()["orderId"].GetStringValue() != "order-2" {
		t.Fatalf("unexpected payment: %v", payment)
	}
	prices := payment.GetFields()["invoice"].GetStructValue().GetFields()["prices"].GetListValue().GetValues()
	if len(prices) != 1 || prices[0].GetStructValue().GetFields()["amount"].GetNumberValue() != 15050 {
		t.Fatalf("unexpected prices: %v", prices)
	}
}

func TestGetPaymentStatusUnknownProvider(t *testing.T) {
	_, err := newTestServer(t, nil).GetPaymentStatus(context.Background(), mustStruct(t, map[string]interface{}{
		"orderId":  "order-1",
		"provider": "paypal",
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestServiceOverBufconn(t *testing.T) {
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoveryInterceptor(),
		RequestIDInterceptor(),
		LoggingInterceptor(),
	))
	RegisterPaymentsServer(server, newTestServer(t, nil))
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &structpb.Struct{}
	err = conn.Invoke(ctx, "/"+ServiceName+"/Health", &structpb.Struct{}, out)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without request id, got %v", err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, requestIDHeader, "grpc-test")
	var header metadata.MD
	in := mustStruct(t, map[string]interface{}{"orderId": "order-9", "provider": "in-chat"})
	if err := conn.Invoke(ctx, "/"+ServiceName+"/GetPaymentStatus", in, out, grpc.Header(&header)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := header.Get(requestIDHeader); len(got) != 1 || got[0] != "grpc-test" {
		t.Fatalf("expected echoed request id, got %v", got)
	}
	statusValue := out.GetFields()["status"].GetStructValue()
	if statusValue.GetFields()["status"].GetStringValue() != "pending" || statusValue.GetFields()["provider"].GetStringValue() != provider.TagTelegram {
		t.Fatalf("unexpected status: %v", statusValue)
	}
}
