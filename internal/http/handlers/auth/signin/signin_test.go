package signin

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

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authservice "github.com/magabrotheeeer/appointment-booking/internal/services/auth"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Signin(ctx context.Context, username, pw string) (*authservice.Token, error) {
	args := m.Called(ctx, username, pw)
	tok, _ := args.Get(0).(*authservice.Token)
	return tok, args.Error(1)
}

func TestSigninHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешный вход",
			requestBody: Request{Username: "alice", Password: "secret"},
			setupMock: func(m *MockService) {
				m.On("Signin", mock.Anything, "alice", "secret").Return(&authservice.Token{
					AccessToken: "jwt-token",
					TokenType:   authservice.TokenType,
					ExpiresIn:   30 * time.Minute,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"access_token":"jwt-token","token_type":"bearer","expires_in":1800}}`,
		},
		{
			name:        "неверные учетные данные",
			requestBody: Request{Username: "alice", Password: "wrong"},
			setupMock: func(m *MockService) {
				m.On("Signin", mock.Anything, "alice", "wrong").
					Return(nil, fmt.Errorf("op: %w", authservice.ErrInvalidCredentials))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"incorrect username or password"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "[",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid request body"`,
		},
		{
			name:           "пустое имя",
			requestBody:    Request{Password: "secret"},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field Username is a required field",
		},
		{
			name:        "ошибка сервиса",
			requestBody: Request{Username: "alice", Password: "secret"},
			setupMock: func(m *MockService) {
				m.On("Signin", mock.Anything, "alice", "secret").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"internal error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			var body []byte
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/signin", bytes.NewReader(body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
