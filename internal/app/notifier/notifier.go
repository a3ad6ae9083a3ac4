// Package notifier собирает приложение, которое читает события записей из RabbitMQ.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/appointment-booking/internal/config"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	notifierservice "github.com/magabrotheeeer/appointment-booking/internal/services/notifier"
)

const consumerConcurrency = 10

type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	audit  *notifierservice.AuditService
	logger *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.notifier.New"

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is empty", op)
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetAppointmentQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		conn:   conn,
		ch:     ch,
		audit:  notifierservice.NewAuditService(logger),
		logger: logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	queue := rabbitmq.GetAppointmentQueues()[0].QueueName
	a.logger.Info("consuming appointment events", slog.String("queue", queue))

	err := rabbitmq.Consume(ctx, a.ch, queue, consumerConcurrency, a.audit.Handle, a.logger)
	if err != nil {
		a.logger.Error("consumer stopped with error", sl.Err(err))
	}

	a.logger.Info("notifier shutting down gracefully")
	if cerr := a.ch.Close(); cerr != nil {
		a.logger.Error("failed to close channel", sl.Err(cerr))
	}
	if cerr := a.conn.Close(); cerr != nil {
		a.logger.Error("failed to close connection", sl.Err(cerr))
	}
	return err
}
