package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhx/labinsight/internal/api"
	"github.com/usmanhx/labinsight/internal/api/handler"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func TestHealthHealthy(t *testing.T) {
	router := api.NewRouter(api.Dependencies{
		HealthHandler: handler.NewHealthHandler(&mockPinger{}, &mockPinger{}, func() int { return 3 }),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string         `json:"status"`
		Service string         `json:"service"`
		Checks  map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "labinsight", resp.Service)
	assert.Equal(t, "ok", resp.Checks["postgres"])
	assert.Equal(t, "ok", resp.Checks["redis"])
	assert.Equal(t, float64(3), resp.Checks["queue_depth"])
}

func TestHealthUnhealthyWhenRedisDown(t *testing.T) {
	router := api.NewRouter(api.Dependencies{
		HealthHandler: handler.NewHealthHandler(&mockPinger{}, &mockPinger{err: errors.New("connection refused")}, nil),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["postgres"])
	assert.Equal(t, "unreachable", resp.Checks["redis"])
}
