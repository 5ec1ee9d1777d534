package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vibast-solutions/ms-go-shop/app/mapper"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "shop.payments.v1.PaymentsService"

// PaymentsServer exchanges google.protobuf.Struct messages whose fields follow
// the JSON shape of the HTTP API.
type PaymentsServer interface {
	Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreatePayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPaymentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func RegisterPaymentsServer(registrar grpc.ServiceRegistrar, srv PaymentsServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(&types.HealthResponse{Status: "ok"})
}

func (s *Server) CreatePayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)

	var in types.CreatePaymentRequest
	if err := fromStruct(req, &in); err != nil {
		l.WithError(err).Debug("Create payment request malformed")
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}
	if err := in.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.paymentService.CreatePayment(ctx, service.CreatePaymentInput{
		Provider:    in.Provider,
		OrderID:     in.OrderID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Description: in.Description,
		SuccessURL:  in.SuccessURL,
		FailURL:     in.FailURL,
	})
	if err != nil {
		return nil, toStatus(ctx, err, "Create payment")
	}

	return toStruct(&types.PaymentEnvelopeResponse{Success: true, Payment: mapper.PaymentResultToResponse(result)})
}

func (s *Server) GetPaymentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		OrderID  string `json:"orderId"`
		Provider string `json:"provider"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}

	outcome, err := s.paymentService.CheckPaymentStatus(ctx, in.OrderID, in.Provider)
	if err != nil {
		return nil, toStatus(ctx, err, "Check payment status")
	}

	return toStruct(&types.PaymentStatusResponse{Success: true, Status: mapper.OutcomeToResponse(outcome)})
}

func toStatus(ctx context.Context, err error, op string) error {
	var validationErr *service.ValidationError
	var ambiguous *provider.AmbiguousOutcomeError
	var providerErr *provider.ProviderError

	switch {
	case errors.As(err, &validationErr):
		return status.Error(codes.InvalidArgument, validationErr.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.As(err, &ambiguous):
		loggerWithContext(ctx).WithError(err).Errorf("%s failed with an ambiguous outcome", op)
		return status.Error(codes.Unknown, "payment outcome is unknown")
	case errors.As(err, &providerErr):
		loggerWithContext(ctx).WithError(err).Errorf("%s failed at provider", op)
		return status.Error(codes.Unavailable, "payment provider error")
	default:
		loggerWithContext(ctx).WithError(err).Errorf("%s failed", op)
		return status.Error(codes.Internal, "internal server error")
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, out any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", PaymentsServer.Health)},
		{MethodName: "CreatePayment", Handler: unaryHandler("CreatePayment", PaymentsServer.CreatePayment)},
		{MethodName: "GetPaymentStatus", Handler: unaryHandler("GetPaymentStatus", PaymentsServer.GetPaymentStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shop/payments/v1/payments.proto",
}

func unaryHandler(method string, call func(PaymentsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(PaymentsServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*structpb.Struct))
		})
	}
}
