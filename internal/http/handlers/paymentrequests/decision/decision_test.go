package decision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) DecidePlanActivation(ctx context.Context, session models.Session, notificationID string, approve bool) (models.AdminNotification, error) {
	args := m.Called(ctx, session, notificationID, approve)
	return args.Get(0).(models.AdminNotification), args.Error(1)
}

func TestDecisionHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	admin := models.Session{UserID: "admin-1", Role: models.RoleAdmin}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "одобрение",
			body: `{"approve":true}`,
			setupMock: func(m *MockService) {
				m.On("DecidePlanActivation", mock.Anything, admin, "n-1", true).
					Return(models.AdminNotification{ID: "n-1", UserRole: models.RoleFirm, Handled: true}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"n-1"`,
		},
		{
			name: "отказ передаётся как false",
			body: `{"approve":false}`,
			setupMock: func(m *MockService) {
				m.On("DecidePlanActivation", mock.Anything, admin, "n-1", false).
					Return(models.AdminNotification{ID: "n-1", UserRole: models.RoleFirm, Handled: true}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"n-1"`,
		},
		{
			name:           "решение не указано",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Approve is a required field`,
		},
		{
			name: "повторное решение",
			body: `{"approve":true}`,
			setupMock: func(m *MockService) {
				m.On("DecidePlanActivation", mock.Anything, admin, "n-1", true).
					Return(models.AdminNotification{}, models.ErrAlreadyHandled).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "собственный запрос",
			body: `{"approve":true}`,
			setupMock: func(m *MockService) {
				m.On("DecidePlanActivation", mock.Anything, admin, "n-1", true).
					Return(models.AdminNotification{}, models.ErrOwnRequest).Once()
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "ошибка хранилища",
			body: `{"approve":true}`,
			setupMock: func(m *MockService) {
				m.On("DecidePlanActivation", mock.Anything, admin, "n-1", true).
					Return(models.AdminNotification{}, errors.New("db error")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/payment-requests/n-1/decision", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "n-1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(middlewarectx.WithSession(ctx, admin))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
