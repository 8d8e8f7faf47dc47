package summary

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
	"github.com/magabrotheeeer/trialguard/internal/lib/billing"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Summary(ctx context.Context, userUID string) (billing.Summary, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(billing.Summary), args.Error(1)
}

func TestSummaryHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		userUID    string
		mockSetup  func(*MockService)
		wantStatus int
		wantTotal  string
	}{
		{
			name:    "success",
			userUID: "uid-1",
			mockSetup: func(m *MockService) {
				m.On("Summary", mock.Anything, "uid-1").Return(billing.Summary{
					TotalMonthlySpend: decimal.RequireFromString("15.99"),
					TotalYearlySpend:  decimal.RequireFromString("191.88"),
					ByCategory:        []billing.Aggregate{},
					ByBillingCycle:    []billing.Aggregate{},
					UpcomingRenewals:  []billing.Renewal{},
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantTotal:  "15.99",
		},
		{
			name:    "service error",
			userUID: "uid-1",
			mockSetup: func(m *MockService) {
				m.On("Summary", mock.Anything, "uid-1").Return(billing.Summary{}, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "no user in context",
			mockSetup:  func(*MockService) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.mockSetup(svc)

			req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantTotal != "" {
				var body struct {
					Data struct {
						TotalMonthlySpend string `json:"totalMonthlySpend"`
					} `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantTotal, body.Data.TotalMonthlySpend)
			}
			svc.AssertExpectations(t)
		})
	}
}
