// Package services содержит бизнес-логику работы с записями на приём:
// выборку с учётом прав, создание от имени вызывающего и изменение с проверкой владельца.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/appointment-booking/internal/access"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	"github.com/magabrotheeeer/appointment-booking/internal/storage/repository"
)

// ErrNotFound возвращается, если запись с указанным ID не существует.
var ErrNotFound = errors.New("appointment not found")

const (
	// EventCreated ключ события создания записи
	EventCreated = "appointment.created"
	// EventUpdated ключ события изменения записи
	EventUpdated = "appointment.updated"
)

// Repository описывает контракт хранилища записей.
type Repository interface {
	CreateAppointment(ctx context.Context, a models.Appointment) (*models.AppointmentView, error)
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	UpdateAppointment(ctx context.Context, a models.Appointment) (*models.AppointmentView, error)
	ListAllAppointments(ctx context.Context) ([]models.AppointmentView, error)
	ListAppointmentsByOwner(ctx context.Context, userID int64) ([]models.AppointmentView, error)
}

// Publisher отправляет события во внешний брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Cache хранит готовые выборки записей. Create и Update сбрасывают затронутые ключи.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Option настраивает AppointmentService.
type Option func(*AppointmentService)

// WithCache включает кэширование списков записей на ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *AppointmentService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// AppointmentService реализует операции над записями.
type AppointmentService struct {
	repo     Repository
	events   Publisher
	cache    Cache
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewAppointmentService создаёт сервис. Если events равен nil, события не публикуются.
func NewAppointmentService(repo Repository, events Publisher, log *slog.Logger, opts ...Option) *AppointmentService {
	s := &AppointmentService{
		repo:   repo,
		events: events,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func listAllKey() string {
	return "appointments:all"
}

func listOwnerKey(ownerID int64) string {
	return "appointments:user:" + strconv.FormatInt(ownerID, 10)
}

// List возвращает все записи для администратора и только собственные для остальных.
func (s *AppointmentService) List(ctx context.Context, requester models.User) ([]models.AppointmentView, error) {
	const op = "services.appointment.List"

	ownerID, all := access.ListScope(requester)
	key := listOwnerKey(ownerID)
	if all {
		if err := access.Authorize(requester, 0, access.OpReadAll); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		key = listAllKey()
	} else if err := access.Authorize(requester, ownerID, access.OpReadOwn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		var cached []models.AppointmentView
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read appointments from cache", slog.String("key", key), sl.Err(err))
		} else if found {
			if cached == nil {
				cached = []models.AppointmentView{}
			}
			return cached, nil
		}
	}

	var (
		result []models.AppointmentView
		err    error
	)
	if all {
		result, err = s.repo.ListAllAppointments(ctx)
	} else {
		result, err = s.repo.ListAppointmentsByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache appointments", slog.String("key", key), sl.Err(err))
		}
	}
	return result, nil
}

// Create сохраняет запись, владельцем которой всегда становится requester.
func (s *AppointmentService) Create(ctx context.Context, requester models.User, in models.AppointmentInput) (*models.AppointmentView, error) {
	const op = "services.appointment.Create"

	ownerID := access.CreateOwner(requester)
	if err := access.Authorize(requester, ownerID, access.OpCreate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view, err := s.repo.CreateAppointment(ctx, models.Appointment{
		UserID:    ownerID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Purpose:   in.Purpose,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("appointment created", slog.Int64("id", view.ID), slog.Int64("user_id", ownerID))
	s.invalidate(ctx, ownerID)
	s.publish(ctx, EventCreated, requester, *view)
	return view, nil
}

// Update заменяет время и цель записи id.
// Отсутствующая запись даёт ErrNotFound, чужая для не-администратора даёт access.ErrForbidden.
func (s *AppointmentService) Update(ctx context.Context, requester models.User, id int64, in models.AppointmentInput) (*models.AppointmentView, error) {
	const op = "services.appointment.Update"

	current, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = access.Authorize(requester, current.UserID, access.OpUpdate); err != nil {
		s.log.Warn("update denied",
			slog.Int64("id", id),
			slog.Int64("owner_id", current.UserID),
			slog.Int64("requester_id", requester.ID))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view, err := s.repo.UpdateAppointment(ctx, models.Appointment{
		ID:        id,
		UserID:    current.UserID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Purpose:   in.Purpose,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("appointment updated", slog.Int64("id", id), slog.Int64("requester_id", requester.ID))
	s.invalidate(ctx, current.UserID)
	s.publish(ctx, EventUpdated, requester, *view)
	return view, nil
}

// invalidate сбрасывает списки, в которые попадают записи владельца ownerID.
func (s *AppointmentService) invalidate(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{listOwnerKey(ownerID), listAllKey()} {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.log.Warn("failed to invalidate appointments cache", slog.String("key", key), sl.Err(err))
		}
	}
}

func (s *AppointmentService) publish(ctx context.Context, kind string, actor models.User, view models.AppointmentView) {
	if s.events == nil {
		return
	}
	event := models.AppointmentEvent{
		Type:        kind,
		ActorID:     actor.ID,
		Appointment: view,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.events.Publish(ctx, kind, event); err != nil {
		s.log.Warn("failed to publish appointment event", slog.String("type", kind), sl.Err(err))
	}
}
