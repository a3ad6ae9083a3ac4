// Package create реализует HTTP-обработчик создания записи на приём.
//
// Владельцем новой записи всегда становится текущий пользователь,
// в том числе администратор.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/http/response"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
)

// Handler обрабатывает POST /appointments.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис записей
	validate *validator.Validate // Валидатор входящих данных
}

// Service описывает создание записи.
type Service interface {
	Create(ctx context.Context, requester models.User, in models.AppointmentInput) (*models.AppointmentView, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать запись
// @Description Создает запись на приём для текущего пользователя.
// @Tags Appointments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.AppointmentInput true "Время и цель записи"
// @Success 201 {object} response.Response{data=models.AppointmentView}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /appointments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.appointment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.AppointmentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	view, err := h.service.Create(r.Context(), *requester, req)
	if err != nil {
		log.Error("failed to create appointment", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create appointment"))
		return
	}

	log.Info("appointment created", slog.Int64("id", view.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(view))
}
