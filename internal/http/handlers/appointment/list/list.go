// Package list реализует HTTP-обработчик получения списка записей.
//
// Администратор видит все записи, обычный пользователь только свои.
// Пустой результат возвращается как пустой массив, а не null.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/http/response"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
)

// Handler обрабатывает GET /appointments.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает получение видимых пользователю записей.
type Service interface {
	List(ctx context.Context, requester models.User) ([]models.AppointmentView, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список записей
// @Description Возвращает все записи для администратора и только собственные для остальных.
// @Tags Appointments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.AppointmentView}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /appointments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.appointment.list"
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

	items, err := h.service.List(r.Context(), *requester)
	if err != nil {
		log.Error("failed to list appointments", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list appointments"))
		return
	}
	if items == nil {
		items = []models.AppointmentView{}
	}

	log.Info("appointments listed", slog.Int("count", len(items)))
	render.JSON(w, r, response.StatusOKWithData(items))
}
