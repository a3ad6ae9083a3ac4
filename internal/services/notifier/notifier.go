// Package services ведёт журнал событий записей, пришедших из брокера.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/appointment-booking/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	appointmentservice "github.com/magabrotheeeer/appointment-booking/internal/services/appointment"
)

// AuditService записывает каждое событие создания или изменения записи в журнал.
type AuditService struct {
	log *slog.Logger
}

func NewAuditService(log *slog.Logger) *AuditService {
	return &AuditService{log: log}
}

// Handle разбирает событие и пишет его в журнал.
// Нераспознанное сообщение отклоняется через rabbitmq.ErrReject.
func (s *AuditService) Handle(_ context.Context, body []byte) error {
	const op = "services.notifier.Handle"

	var event models.AppointmentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrReject, err)
	}
	switch event.Type {
	case appointmentservice.EventCreated, appointmentservice.EventUpdated:
	default:
		return fmt.Errorf("%s: %w: unknown event type %q", op, rabbitmq.ErrReject, event.Type)
	}

	s.log.Info("appointment event",
		slog.String("type", event.Type),
		slog.Int64("actor_id", event.ActorID),
		slog.Int64("appointment_id", event.Appointment.ID),
		slog.Int64("owner_id", event.Appointment.UserID),
		slog.String("owner", event.Appointment.Username),
		slog.Time("start_time", event.Appointment.StartTime),
		slog.Time("end_time", event.Appointment.EndTime),
		slog.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
