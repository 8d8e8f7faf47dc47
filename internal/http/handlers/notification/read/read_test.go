package read

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) MarkRead(ctx context.Context, userUID string, id int64) error {
	return m.Called(ctx, userUID, id).Error(0)
}

func TestReadHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		id             string
		anonymous      bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "уведомление отмечено",
			id:   "7",
			setupMock: func(m *MockService) {
				m.On("MarkRead", mock.Anything, "uid-1", int64(7)).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK"}`,
		},
		{
			name:           "без пользователя в контексте",
			id:             "7",
			anonymous:      true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:           "некорректный id",
			id:             "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"failed to decode id from url"`,
		},
		{
			name: "чужое уведомление",
			id:   "8",
			setupMock: func(m *MockService) {
				m.On("MarkRead", mock.Anything, "uid-1", int64(8)).Return(repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"notification not found"`,
		},
		{
			name: "ошибка базы",
			id:   "9",
			setupMock: func(m *MockService) {
				m.On("MarkRead", mock.Anything, "uid-1", int64(9)).Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not update notification"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/notifications/"+tt.id+"/read", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			if !tt.anonymous {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, "uid-1")
			}

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req.WithContext(ctx))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
