package create

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/models"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) AddReminder(ctx context.Context, userUID string, subscriptionID int64, req models.DummyReminder) (*models.Reminder, error) {
	args := m.Called(ctx, userUID, subscriptionID, req)
	if r := args.Get(0); r != nil {
		return r.(*models.Reminder), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateReminderHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "created",
			body: `{"date":"2026-05-20"}`,
			setup: func(m *MockService) {
				m.On("AddReminder", mock.Anything, "uid-1", int64(4), models.DummyReminder{Date: "2026-05-20"}).
					Return(&models.Reminder{ID: 9, SubscriptionID: 4, Date: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC), Status: models.ReminderPending}, nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"id":9`,
		},
		{
			name: "foreign subscription",
			body: `{"date":"2026-05-20"}`,
			setup: func(m *MockService) {
				m.On("AddReminder", mock.Anything, "uid-1", int64(4), mock.Anything).Return(nil, repository.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "subscription not found",
		},
		{
			name:       "missing date",
			body:       `{}`,
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "field Date is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/4/reminders", bytes.NewBufferString(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "4")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(context.WithValue(ctx, middlewarectx.UserUID, "uid-1"))
			rec := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
