package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/appointment-booking/internal/models"
)

const selectView = `SELECT a.id, a.user_id, u.username, a.start_time, a.end_time, a.purpose
			  FROM appointments a
			  JOIN users u ON u.id = a.user_id`

// CreateAppointment вставляет новую запись и возвращает её вместе с именем владельца.
func (s *Storage) CreateAppointment(ctx context.Context, a models.Appointment) (*models.AppointmentView, error) {
	const op = "storage.CreateAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `WITH ins AS (
				  INSERT INTO appointments (user_id, start_time, end_time, purpose)
				  VALUES ($1, $2, $3, $4)
				  RETURNING id, user_id, start_time, end_time, purpose
			  )
			  SELECT ins.id, ins.user_id, u.username, ins.start_time, ins.end_time, ins.purpose
			  FROM ins
			  JOIN users u ON u.id = ins.user_id`
	v, err := scanView(s.DB.QueryRowContext(ctx, query, a.UserID, a.StartTime, a.EndTime, a.Purpose))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// GetAppointment возвращает запись по её ID.
func (s *Storage) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	const op = "storage.GetAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, start_time, end_time, purpose
			  FROM appointments
			  WHERE id = $1`
	var a models.Appointment
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.StartTime, &a.EndTime, &a.Purpose); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}

// UpdateAppointment заменяет время и цель записи a.ID. Владелец не меняется.
func (s *Storage) UpdateAppointment(ctx context.Context, a models.Appointment) (*models.AppointmentView, error) {
	const op = "storage.UpdateAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `WITH upd AS (
				  UPDATE appointments
				  SET start_time = $1, end_time = $2, purpose = $3
				  WHERE id = $4
				  RETURNING id, user_id, start_time, end_time, purpose
			  )
			  SELECT upd.id, upd.user_id, u.username, upd.start_time, upd.end_time, upd.purpose
			  FROM upd
			  JOIN users u ON u.id = upd.user_id`
	v, err := scanView(s.DB.QueryRowContext(ctx, query, a.StartTime, a.EndTime, a.Purpose, a.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// ListAllAppointments возвращает все записи с именами владельцев.
func (s *Storage) ListAllAppointments(ctx context.Context) ([]models.AppointmentView, error) {
	const op = "storage.ListAllAppointments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.listViews(ctx, op, selectView+` ORDER BY a.id`)
}

// ListAppointmentsByOwner возвращает записи одного владельца.
func (s *Storage) ListAppointmentsByOwner(ctx context.Context, userID int64) ([]models.AppointmentView, error) {
	const op = "storage.ListAppointmentsByOwner"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.listViews(ctx, op, selectView+` WHERE a.user_id = $1 ORDER BY a.id`, userID)
}

func (s *Storage) listViews(ctx context.Context, op, query string, args ...any) ([]models.AppointmentView, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.AppointmentView, 0)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (*models.AppointmentView, error) {
	var v models.AppointmentView
	if err := row.Scan(&v.ID, &v.UserID, &v.Username, &v.StartTime, &v.EndTime, &v.Purpose); err != nil {
		return nil, err
	}
	return &v, nil
}
