// Package appointments собирает HTTP-приложение сервиса записи на приём.
package appointments

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/appointment-booking/internal/http/handlers/appointment/create"
	"github.com/magabrotheeeer/appointment-booking/internal/http/handlers/appointment/list"
	"github.com/magabrotheeeer/appointment-booking/internal/http/handlers/appointment/update"
	"github.com/magabrotheeeer/appointment-booking/internal/http/handlers/auth/signin"
	"github.com/magabrotheeeer/appointment-booking/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/appointment-booking/internal/http/handlers/health"
	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/metrics"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	authservice "github.com/magabrotheeeer/appointment-booking/internal/services/auth"
)

// AuthService — аутентификация, локальная или через gRPC-клиента.
type AuthService interface {
	Signup(ctx context.Context, username, password string, isAdmin bool) (*models.User, error)
	Signin(ctx context.Context, username, password string) (*authservice.Token, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AppointmentService — операции над записями.
type AppointmentService interface {
	List(ctx context.Context, requester models.User) ([]models.AppointmentView, error)
	Create(ctx context.Context, requester models.User, in models.AppointmentInput) (*models.AppointmentView, error)
	Update(ctx context.Context, requester models.User, id int64, in models.AppointmentInput) (*models.AppointmentView, error)
}

// Dependencies — всё, что нужно маршрутам. Health, Metrics и Limiter необязательны.
type Dependencies struct {
	Auth         AuthService
	Appointments AppointmentService
	Health       health.Checker
	Metrics      *metrics.HTTP
	Limiter      *middlewarectx.IPRateLimiter
	CORSOrigins  []string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Dependencies) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.CORS(d.CORSOrigins),
	)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", health.New(logger, d.Health).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			if d.Limiter != nil {
				r.Use(middlewarectx.RateLimitMiddleware(d.Limiter, logger))
			}
			r.Post("/signup", signup.New(logger, d.Auth).ServeHTTP)
			r.Post("/signin", signin.New(logger, d.Auth).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Auth, logger))
			r.Get("/appointments", list.New(logger, d.Appointments).ServeHTTP)
			r.Post("/appointments", create.New(logger, d.Appointments).ServeHTTP)
			r.Put("/appointments/{id}", update.New(logger, d.Appointments).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
