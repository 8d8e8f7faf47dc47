package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

// MockService реализует интерфейс list.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if l := args.Get(0); l != nil {
		return l.([]*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func request(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("paging bounds", func(t *testing.T) {
		tests := []struct {
			name                string
			target              string
			wantLimit, wantOffs int
		}{
			{name: "default limit", target: "/subscriptions", wantLimit: defaultLimit},
			{name: "explicit paging", target: "/subscriptions?limit=10&offset=30", wantLimit: 10, wantOffs: 30},
			{name: "limit capped", target: "/subscriptions?limit=1000", wantLimit: maxLimit},
			{name: "garbage ignored", target: "/subscriptions?limit=abc&offset=-5", wantLimit: defaultLimit},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := new(MockService)
				svc.On("List", mock.Anything, "uid-1", tt.wantLimit, tt.wantOffs).Return([]*models.Subscription{}, nil).Once()

				rec := httptest.NewRecorder()
				New(logger, svc).ServeHTTP(rec, request(tt.target))

				assert.Equal(t, http.StatusOK, rec.Code)
				svc.AssertExpectations(t)
			})
		}
	})

	t.Run("returns subscriptions", func(t *testing.T) {
		svc := new(MockService)
		svc.On("List", mock.Anything, "uid-1", defaultLimit, 0).Return([]*models.Subscription{
			{ID: 1, Name: "Netflix", Price: decimal.RequireFromString("15.99"), BillingCycle: "MONTHLY", Status: models.StatusActive},
		}, nil).Once()

		rec := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rec, request("/subscriptions"))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data []models.Subscription `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "Netflix", body.Data[0].Name)
		assert.True(t, body.Data[0].Price.Equal(decimal.RequireFromString("15.99")))
	})

	t.Run("service error", func(t *testing.T) {
		svc := new(MockService)
		svc.On("List", mock.Anything, "uid-1", defaultLimit, 0).Return(nil, errors.New("db")).Once()

		rec := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rec, request("/subscriptions"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "could not list subscriptions")
	})

	t.Run("unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(logger, new(MockService)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
