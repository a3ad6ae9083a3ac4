// Package auth собирает gRPC-приложение сервиса аутентификации.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/magabrotheeeer/appointment-booking/internal/app/appointments"
	"github.com/magabrotheeeer/appointment-booking/internal/config"
	"github.com/magabrotheeeer/appointment-booking/internal/grpc/authrpc"
	"github.com/magabrotheeeer/appointment-booking/internal/grpc/server"
	"github.com/magabrotheeeer/appointment-booking/internal/migrations"
	"github.com/magabrotheeeer/appointment-booking/internal/storage/repository"
)

type App struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     *slog.Logger
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.auth.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	closers := []func() error{db.Close}
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return fail(err)
	}

	authService, err := appointments.NewLocalAuth(cfg, db, logger)
	if err != nil {
		return fail(err)
	}
	if cfg.Auth.SeedFile != "" {
		n, err := authService.SeedFromFile(ctx, cfg.Auth.SeedFile)
		if err != nil {
			return fail(err)
		}
		logger.Info("users seeded", slog.Int("created", n))
	}

	lis, err := net.Listen("tcp", cfg.GRPCAuthAddress)
	if err != nil {
		return fail(err)
	}

	grpcServer := grpc.NewServer()
	authrpc.RegisterAuthServer(grpcServer, server.NewAuthServer(authService, logger))

	return &App{
		grpcServer: grpcServer,
		listener:   lis,
		logger:     logger,
		closers:    closers,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("Auth gRPC service listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	defer func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			_ = a.closers[i]()
		}
	}()

	select {
	case <-ctx.Done():
		a.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
