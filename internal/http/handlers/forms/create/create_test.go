package create

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateForm(ctx context.Context, session models.Session, fields models.FormFields) (models.Form, error) {
	args := m.Called(ctx, session, fields)
	return args.Get(0).(models.Form), args.Error(1)
}

const validBody = `{"location":"Казань, ул. Баумана, 5","expected_date":"2025-06-01","admin_codes":["HH-01"],"fees":{"from":100,"to":300},"payment_reminder":true}`

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	firm := models.Session{UserID: "firm-1", Role: models.RoleFirm}
	wantFields := models.FormFields{
		Location:        "Казань, ул. Баумана, 5",
		ExpectedDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		AdminCodes:      []string{"HH-01"},
		Fees:            models.FeeRange{From: 100, To: 300},
		PaymentReminder: true,
	}

	tests := []struct {
		name           string
		body           string
		session        *models.Session
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное создание",
			body:    validBody,
			session: &firm,
			setupMock: func(m *MockService) {
				m.On("CreateForm", mock.Anything, firm, wantFields).
					Return(models.Form{ID: "f-1", Location: wantFields.Location}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"f-1"`,
		},
		{
			name:           "без сессии",
			body:           validBody,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"location":`,
			session:        &firm,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "нет кодов администраторов",
			body:           `{"location":"Казань","expected_date":"2025-06-01","admin_codes":[]}`,
			session:        &firm,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field AdminCodes is too short`,
		},
		{
			name:           "неверный формат даты",
			body:           `{"location":"Казань","expected_date":"01.06.2025","admin_codes":["HH-01"]}`,
			session:        &firm,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `expected_date must be in format 2006-01-02`,
		},
		{
			name:    "исчерпан лимит",
			body:    validBody,
			session: &firm,
			setupMock: func(m *MockService) {
				m.On("CreateForm", mock.Anything, firm, wantFields).
					Return(models.Form{}, models.QuotaError{Limit: 2, Used: 2}).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"entry quota exceeded: 2 of 2 used"}`,
		},
		{
			name:    "ошибка хранилища",
			body:    validBody,
			session: &firm,
			setupMock: func(m *MockService) {
				m.On("CreateForm", mock.Anything, firm, wantFields).
					Return(models.Form{}, errors.New("db error")).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/forms", strings.NewReader(tt.body))
			if tt.session != nil {
				req = req.WithContext(middlewarectx.WithSession(req.Context(), *tt.session))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
