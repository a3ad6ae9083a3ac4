// Package client — gRPC-клиент сервиса аутентификации.
//
// AuthClient реализует те же методы, что и локальный AuthService,
// поэтому HTTP-обработчики и middleware работают с ним без изменений.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magabrotheeeer/appointment-booking/internal/grpc/authrpc"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/password"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	services "github.com/magabrotheeeer/appointment-booking/internal/services/auth"
)

type AuthClient struct {
	conn grpc.ClientConnInterface
	// close равен nil, если соединение передано снаружи
	close func() error
}

// NewAuthClient создаёт клиента к сервису по адресу addr.
// Соединение устанавливается лениво при первом вызове.
func NewAuthClient(addr string, opts ...grpc.DialOption) (*AuthClient, error) {
	const op = "client.NewAuthClient"

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthClient{conn: conn, close: conn.Close}, nil
}

// NewFromConn оборачивает готовое соединение. Закрывает его вызывающий.
func NewFromConn(conn grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

func (a *AuthClient) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// fromStatus переводит код gRPC обратно в доменную ошибку.
func fromStatus(op string, err error) error {
	st, _ := status.FromError(err)
	switch {
	case st.Code() == codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, services.ErrDuplicateUsername)
	case st.Code() == codes.Unauthenticated:
		return fmt.Errorf("%s: %w", op, services.ErrInvalidCredentials)
	case st.Code() == codes.InvalidArgument && st.Message() == authrpc.MsgPasswordTooLong:
		return fmt.Errorf("%s: %w", op, password.ErrTooLong)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (a *AuthClient) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := a.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AuthClient) Signup(ctx context.Context, username, pw string, isAdmin bool) (*models.User, error) {
	const op = "client.Signup"

	in, err := authrpc.SignupRequest{Username: username, Password: pw, IsAdmin: isAdmin}.Struct()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := a.invoke(ctx, authrpc.MethodSignup, in)
	if err != nil {
		return nil, fromStatus(op, err)
	}
	user, err := authrpc.ParseUser(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (a *AuthClient) Signin(ctx context.Context, username, pw string) (*services.Token, error) {
	const op = "client.Signin"

	in, err := authrpc.SigninRequest{Username: username, Password: pw}.Struct()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := a.invoke(ctx, authrpc.MethodSignin, in)
	if err != nil {
		return nil, fromStatus(op, err)
	}
	reply, err := authrpc.ParseTokenReply(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &services.Token{
		AccessToken: reply.AccessToken,
		TokenType:   reply.TokenType,
		ExpiresIn:   reply.ExpiresIn,
	}, nil
}

// Resolve устанавливает пользователя по токену через удалённый сервис.
func (a *AuthClient) Resolve(ctx context.Context, token string) (*models.User, error) {
	const op = "client.Resolve"

	in, err := authrpc.TokenStruct(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := a.invoke(ctx, authrpc.MethodResolveToken, in)
	if err != nil {
		return nil, fromStatus(op, err)
	}
	user, err := authrpc.ParseUser(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
