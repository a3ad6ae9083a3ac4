package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/appointment-booking/internal/cache"
	"github.com/magabrotheeeer/appointment-booking/internal/config"
	"github.com/magabrotheeeer/appointment-booking/internal/grpc/client"
	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/password"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/metrics"
	"github.com/magabrotheeeer/appointment-booking/internal/migrations"
	appointmentservice "github.com/magabrotheeeer/appointment-booking/internal/services/appointment"
	authservice "github.com/magabrotheeeer/appointment-booking/internal/services/auth"
	"github.com/magabrotheeeer/appointment-booking/internal/storage/repository"
)

type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []func() error
}

// New поднимает хранилище, кэш, брокер и HTTP-сервер по конфигурации.
// Redis и RabbitMQ необязательны: без адреса списки записей не кэшируются, события не публикуются.
// При заданном grpc_auth_address аутентификация выполняется удалённым сервисом.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.appointments.New"

	app := &App{logger: logger}
	fail := func(err error) (*App, error) {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, db.Close)

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return fail(err)
	}

	var auth AuthService
	if cfg.GRPCAuthAddress != "" {
		authClient, err := client.NewAuthClient(cfg.GRPCAuthAddress)
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, authClient.Close)
		auth = authClient
		logger.Info("using remote auth service", slog.String("address", cfg.GRPCAuthAddress))
	} else {
		local, err := NewLocalAuth(cfg, db, logger)
		if err != nil {
			return fail(err)
		}
		if cfg.Auth.SeedFile != "" {
			n, err := local.SeedFromFile(ctx, cfg.Auth.SeedFile)
			if err != nil {
				return fail(err)
			}
			logger.Info("users seeded", slog.Int("created", n))
		}
		auth = local
	}

	// nil-интерфейс, а не nil-указатель: сервис проверяет events == nil
	var events appointmentservice.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			return fail(err)
		}
		publisher, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetAppointmentQueues())
		if err != nil {
			_ = conn.Close()
			return fail(err)
		}
		app.closers = append(app.closers, publisher.Close)
		events = publisher
	}

	var listCache appointmentservice.Cache = cache.Noop{}
	if cfg.RedisConnection.Address != "" {
		redisCache, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, redisCache.Close)
		listCache = redisCache
	}

	appointmentSvc := appointmentservice.NewAppointmentService(db, events, logger,
		appointmentservice.WithCache(listCache, cfg.RedisConnection.ListCacheTTL))

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Dependencies{
		Auth:         auth,
		Appointments: appointmentSvc,
		Health:       db,
		Metrics:      metrics.New(prometheus.DefaultRegisterer),
		Limiter:      middlewarectx.NewIPRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst),
		CORSOrigins:  cfg.HTTPServer.CORSAllowedOrigins,
	})

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// NewLocalAuth собирает AuthService поверх хранилища пользователей.
func NewLocalAuth(cfg *config.Config, users authservice.UserRepository, logger *slog.Logger) (*authservice.AuthService, error) {
	tokens, err := jwt.NewJWTMaker(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		return nil, err
	}
	return authservice.NewAuthService(users, password.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, logger, authservice.Options{
		TokenTTL:         cfg.JWT.TokenTTL,
		AllowAdminSignup: cfg.Auth.AllowAdminSignup,
	}), nil
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", sl.Err(err))
		}
	}
	a.closers = nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}
