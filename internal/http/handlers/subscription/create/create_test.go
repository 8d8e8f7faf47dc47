package create

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/models"
	"github.com/magabrotheeeer/trialguard/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, userUID string, req models.DummySubscription) (int64, error) {
	args := m.Called(ctx, userUID, req)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreateHandler(t *testing.T) {
	validBody := `{"name":"Netflix","price":"15.99","billing_cycle":"MONTHLY","trial_end_date":"2026-06-01"}`
	validReq := models.DummySubscription{Name: "Netflix", Price: "15.99", BillingCycle: "MONTHLY", TrialEndDate: "2026-06-01"}

	tests := []struct {
		name         string
		body         string
		userUID      string
		setupMock    func(*MockService)
		wantStatus   int
		wantContains string
	}{
		{
			name:    "created",
			body:    validBody,
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "uid-1", validReq).Return(int64(5), nil).Once()
			},
			wantStatus:   http.StatusCreated,
			wantContains: `"id":5`,
		},
		{
			name:         "no user in context",
			body:         validBody,
			wantStatus:   http.StatusUnauthorized,
			wantContains: "unauthorized",
		},
		{
			name:         "invalid json",
			body:         `{"name":`,
			userUID:      "uid-1",
			wantStatus:   http.StatusBadRequest,
			wantContains: "invalid request body",
		},
		{
			name:         "missing name",
			body:         `{"price":"15.99","billing_cycle":"MONTHLY"}`,
			userUID:      "uid-1",
			wantStatus:   http.StatusUnprocessableEntity,
			wantContains: "field Name is a required field",
		},
		{
			name:    "rejected by service",
			body:    validBody,
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "uid-1", validReq).
					Return(int64(0), fmt.Errorf("%w: unknown billing cycle", subscription.ErrInvalidInput)).Once()
			},
			wantStatus:   http.StatusBadRequest,
			wantContains: "unknown billing cycle",
		},
		{
			name:    "storage error",
			body:    validBody,
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "uid-1", validReq).Return(int64(0), errors.New("db")).Once()
			},
			wantStatus:   http.StatusInternalServerError,
			wantContains: "could not create subscription",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewBufferString(tt.body))
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantContains)
			svc.AssertExpectations(t)
		})
	}
}
