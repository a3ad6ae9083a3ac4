package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
)

// ErrReject — обработчик не сможет разобрать сообщение и при повторе.
// Такое сообщение отклоняется без возврата в очередь.
var ErrReject = errors.New("message rejected")

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// Consume читает очередь queueName и обрабатывает не более concurrency сообщений одновременно.
// Блокируется до отмены ctx или закрытия канала и дожидается запущенных обработчиков.
func Consume(ctx context.Context, ch *amqp.Channel, queueName string, concurrency int, handler Handler, log *slog.Logger) error {
	const op = "rabbitmq.Consume"
	if concurrency < 1 {
		concurrency = 1
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, concurrency)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				settle(ctx, d, handler(ctx, d.Body), log)
			}(d)
		case <-ctx.Done():
			return nil
		}
	}
}

func settle(ctx context.Context, d amqp.Delivery, err error, log *slog.Logger) {
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrReject):
		log.Warn("message rejected", slog.String("routing_key", d.RoutingKey), sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Error("failed to handle message", slog.String("routing_key", d.RoutingKey), sl.Err(err))
		// при остановке сообщение вернётся в очередь само, когда закроется канал
		if ctx.Err() != nil {
			return
		}
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
