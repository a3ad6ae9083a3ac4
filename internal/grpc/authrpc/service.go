// Package authrpc описывает gRPC-контракт сервиса аутентификации.
//
// Сообщения передаются как google.protobuf.Struct, поэтому для сервиса
// не нужен отдельный шаг генерации кода. Типизированные обёртки
// в messages.go переводят Struct в доменные значения и обратно.
package authrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName — полное имя gRPC-сервиса.
const ServiceName = "appointments.auth.v1.AuthService"

const (
	MethodSignup       = "/" + ServiceName + "/Signup"
	MethodSignin       = "/" + ServiceName + "/Signin"
	MethodResolveToken = "/" + ServiceName + "/ResolveToken"
)

// AuthServer — серверная сторона сервиса.
type AuthServer interface {
	Signup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Signin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResolveToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type call func(srv AuthServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, fn call) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(AuthServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(AuthServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc описывает методы сервиса для grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Signup", Handler: unary(MethodSignup, AuthServer.Signup)},
		{MethodName: "Signin", Handler: unary(MethodSignin, AuthServer.Signin)},
		{MethodName: "ResolveToken", Handler: unary(MethodResolveToken, AuthServer.ResolveToken)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointments/auth/v1/auth.proto",
}

// RegisterAuthServer регистрирует реализацию сервиса.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&ServiceDesc, srv)
}
