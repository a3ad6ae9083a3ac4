package models

import "time"

// Appointment представляет запись на приём, принадлежащую ровно одному пользователю.
type Appointment struct {
	ID        int64
	UserID    int64
	StartTime time.Time
	EndTime   time.Time
	Purpose   string
}

// AppointmentView — запись вместе с именем владельца, так её видят клиенты API.
type AppointmentView struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Purpose   string    `json:"purpose"`
}

// AppointmentInput используется для приёма данных из JSON-запроса
// при создании и обновлении записи.
type AppointmentInput struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Purpose   string    `json:"purpose" validate:"required,max=500"`
}

// AppointmentEvent публикуется в брокер после создания или изменения записи.
type AppointmentEvent struct {
	Type        string          `json:"type"`
	ActorID     int64           `json:"actor_id"`
	Appointment AppointmentView `json:"appointment"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
