// Package server реализует gRPC-сервер для сервиса аутентификации.
//
// AuthServer обрабатывает запросы регистрации, входа и установления личности
// по токену. Доменные ошибки переводятся в коды gRPC: занятое имя в AlreadyExists,
// неверные учётные данные в Unauthenticated, всё остальное в Internal.
package server

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magabrotheeeer/appointment-booking/internal/grpc/authrpc"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/password"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	services "github.com/magabrotheeeer/appointment-booking/internal/services/auth"
)

// AuthServiceInterface — операции сервиса аутентификации, доступные по gRPC.
type AuthServiceInterface interface {
	Signup(ctx context.Context, username, password string, isAdmin bool) (*models.User, error)
	Signin(ctx context.Context, username, password string) (*services.Token, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AuthServer реализует authrpc.AuthServer.
type AuthServer struct {
	authService AuthServiceInterface
	log         *slog.Logger
}

var _ authrpc.AuthServer = (*AuthServer)(nil)

// NewAuthServer создает новый экземпляр AuthServer.
func NewAuthServer(authService AuthServiceInterface, logger *slog.Logger) *AuthServer {
	return &AuthServer{
		authService: authService,
		log:         logger,
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, services.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, "username already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, password.ErrTooLong):
		return status.Error(codes.InvalidArgument, authrpc.MsgPasswordTooLong)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func internal(err error) error {
	return status.Errorf(codes.Internal, "encode response: %v", err)
}

// Signup создает нового пользователя
func (s *AuthServer) Signup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := authrpc.ParseSignupRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.Info("Signup request", slog.String("username", in.Username))

	user, err := s.authService.Signup(ctx, in.Username, in.Password, in.IsAdmin)
	if err != nil {
		s.log.Error("Signup failed", slog.String("username", in.Username), sl.Err(err))
		return nil, toStatus(err)
	}

	out, err := authrpc.UserStruct(*user)
	if err != nil {
		return nil, internal(err)
	}
	return out, nil
}

// Signin проверяет пароль и выпускает токен
func (s *AuthServer) Signin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := authrpc.ParseSigninRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.Info("Signin request", slog.String("username", in.Username))

	token, err := s.authService.Signin(ctx, in.Username, in.Password)
	if err != nil {
		s.log.Info("Signin failed", slog.String("username", in.Username), sl.Err(err))
		return nil, toStatus(err)
	}

	out, err := authrpc.TokenReply{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
	}.Struct()
	if err != nil {
		return nil, internal(err)
	}
	return out, nil
}

// ResolveToken возвращает пользователя, которому выдан токен
func (s *AuthServer) ResolveToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token, err := authrpc.ParseToken(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	user, err := s.authService.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			s.log.Error("ResolveToken failed", sl.Err(err))
		}
		return nil, toStatus(err)
	}

	out, err := authrpc.UserStruct(*user)
	if err != nil {
		return nil, internal(err)
	}
	return out, nil
}
