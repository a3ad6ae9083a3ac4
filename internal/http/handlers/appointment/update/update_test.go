package update

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/appointment-booking/internal/access"
	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	appointmentservice "github.com/magabrotheeeer/appointment-booking/internal/services/appointment"
)

// MockService реализует интерфейс update.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, requester models.User, id int64, in models.AppointmentInput) (*models.AppointmentView, error) {
	args := m.Called(ctx, requester, id, in)
	v, _ := args.Get(0).(*models.AppointmentView)
	return v, args.Error(1)
}

func TestUpdateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bob := &models.User{ID: 2, Username: "bob"}
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	valid := models.AppointmentInput{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Purpose:   "checkup",
	}

	tests := []struct {
		name           string
		id             string
		requestBody    any
		user           *models.User
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное обновление",
			id:          "7",
			requestBody: valid,
			user:        bob,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, *bob, int64(7), valid).
					Return(&models.AppointmentView{ID: 7, UserID: 2, Username: "bob", Purpose: "checkup"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"purpose":"checkup"`,
		},
		{
			name:           "некорректный id в url",
			id:             "abc",
			requestBody:    valid,
			user:           bob,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid appointment id"}`,
		},
		{
			name:           "отрицательный id",
			id:             "-1",
			requestBody:    valid,
			user:           bob,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid appointment id"`,
		},
		{
			name:           "некорректный JSON",
			id:             "7",
			requestBody:    "not a json",
			user:           bob,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid request body"`,
		},
		{
			name: "конец раньше начала",
			id:   "7",
			requestBody: models.AppointmentInput{
				StartTime: start,
				EndTime:   start.Add(-time.Hour),
				Purpose:   "checkup",
			},
			user:           bob,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field EndTime must be after StartTime",
		},
		{
			name:           "отсутствует авторизация",
			id:             "7",
			requestBody:    valid,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"unauthorized"`,
		},
		{
			name:        "чужая запись",
			id:          "7",
			requestBody: valid,
			user:        bob,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, *bob, int64(7), valid).
					Return(nil, fmt.Errorf("op: %w", access.ErrForbidden))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"not enough permissions"}`,
		},
		{
			name:        "запись не найдена",
			id:          "999",
			requestBody: valid,
			user:        bob,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, *bob, int64(999), valid).
					Return(nil, fmt.Errorf("op: %w", appointmentservice.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"appointment not found"}`,
		},
		{
			name:        "ошибка сервиса",
			id:          "7",
			requestBody: valid,
			user:        bob,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, *bob, int64(7), valid).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"could not update appointment"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPut, "/appointments/"+tt.id, bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			if tt.user != nil {
				ctx = middlewarectx.WithUser(ctx, tt.user)
			}

			// Устанавливаем URL параметр id для chi
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
