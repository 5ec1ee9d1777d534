package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	createPaymentMethod = "/" + ServiceName + "/CreatePayment"
	statusMethod        = "/" + ServiceName + "/GetPaymentStatus"
)

func okHandler(context.Context, interface{}) (interface{}, error) {
	return "ok", nil
}

func TestRequestIDFromMetadata(t *testing.T) {
	cases := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "no metadata", ctx: context.Background(), want: ""},
		{name: "trimmed", ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, "  bot-42 ")), want: "bot-42"},
		{name: "first value wins", ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, "a", requestIDHeader, "b")), want: "a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := requestIDFromMetadata(tc.ctx); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequestIDInterceptorRejectsBlankID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, "   "))

	called := false
	_, err := RequestIDInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: createPaymentMethod}, func(context.Context, interface{}) (interface{}, error) {
		called = true
		return nil, nil
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if called {
		t.Fatal("handler must not run without a request id")
	}
}

func TestRequestIDInterceptorStoresID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, "order-flow-1"))

	_, err := RequestIDInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: statusMethod}, func(ctx context.Context, _ interface{}) (interface{}, error) {
		if got := RequestIDFromContext(ctx); got != "order-flow-1" {
			t.Fatalf("expected order-flow-1, got %q", got)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id outside the interceptor, got %q", got)
	}
}

func TestRecoveryInterceptorConvertsPanicToInternal(t *testing.T) {
	_, err := RecoveryInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: createPaymentMethod}, func(context.Context, interface{}) (interface{}, error) {
		panic("provider adapter exploded")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected codes.Internal, got %v", err)
	}
}

func TestLoggingInterceptorLevels(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	cases := []struct {
		name    string
		handler grpc.UnaryHandler
		level   logrus.Level
		code    string
	}{
		{name: "ok", handler: okHandler, level: logrus.InfoLevel, code: codes.OK.String()},
		{
			name: "client error",
			handler: func(context.Context, interface{}) (interface{}, error) {
				return nil, status.Error(codes.InvalidArgument, "Invalid provider")
			},
			level: logrus.InfoLevel,
			code:  codes.InvalidArgument.String(),
		},
		{
			name: "internal error",
			handler: func(context.Context, interface{}) (interface{}, error) {
				return nil, status.Error(codes.Internal, "store down")
			},
			level: logrus.ErrorLevel,
			code:  codes.Internal.String(),
		},
		{
			name: "plain error",
			handler: func(context.Context, interface{}) (interface{}, error) {
				return nil, errors.New("unexpected")
			},
			level: logrus.InfoLevel,
			code:  codes.Unknown.String(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hook.Reset()
			_, _ = LoggingInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: statusMethod}, tc.handler)

			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("expected a log entry")
			}
			if entry.Message != "grpc_request" {
				t.Fatalf("unexpected message %q", entry.Message)
			}
			if entry.Level != tc.level {
				t.Fatalf("expected level %s, got %s", tc.level, entry.Level)
			}
			if entry.Data["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, entry.Data["code"])
			}
			if entry.Data["method"] != statusMethod {
				t.Fatalf("unexpected method %v", entry.Data["method"])
			}
		})
	}
}

func TestLoggingInterceptorPassesResponseThrough(t *testing.T) {
	resp, err := LoggingInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: statusMethod}, okHandler)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected response: %v", resp)
	}
}
