// Package update реализует HTTP-обработчик изменения записи на приём.
//
// Владелец записи не меняется. Изменять чужие записи может только администратор.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/appointment-booking/internal/access"
	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/http/response"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	appointmentservice "github.com/magabrotheeeer/appointment-booking/internal/services/appointment"
)

// Handler обрабатывает PUT /appointments/{id}.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает изменение записи.
type Service interface {
	Update(ctx context.Context, requester models.User, id int64, in models.AppointmentInput) (*models.AppointmentView, error)
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
// @Summary Изменить запись
// @Description Заменяет время и цель записи. Владелец записи сохраняется.
// @Tags Appointments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID записи"
// @Param request body models.AppointmentInput true "Новые время и цель"
// @Success 200 {object} response.Response{data=models.AppointmentView}
// @Failure 400 {object} response.ErrorResponse "Некорректный id или JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /appointments/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.appointment.update"
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

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Info("invalid id in url", slog.String("id", chi.URLParam(r, "id")))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid appointment id"))
		return
	}

	var req models.AppointmentInput
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err = h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	view, err := h.service.Update(r.Context(), *requester, id, req)
	switch {
	case errors.Is(err, appointmentservice.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("appointment not found"))
		return
	case errors.Is(err, access.ErrForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("not enough permissions"))
		return
	case err != nil:
		log.Error("failed to update appointment", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update appointment"))
		return
	}

	log.Info("appointment updated", slog.Int64("id", view.ID))
	render.JSON(w, r, response.StatusOKWithData(view))
}
