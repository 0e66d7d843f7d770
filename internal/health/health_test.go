package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(msg string) PingFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Register("storage", ok, true)
	handler.Register("kafka", ok, false)

	rec := serve(t, handler.ServeHTTP, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Equal(t, StatusHealthy, response.Status)
	require.Equal(t, "v1.0.0", response.Version)
	require.Len(t, response.Checks, 2)
	require.True(t, response.Checks["storage"].Critical)
}

func TestHealthHandler_CriticalFailure(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Register("storage", failing("connection refused"), true)
	handler.Register("kafka", ok, false)

	rec := serve(t, handler.ServeHTTP, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Equal(t, StatusUnhealthy, response.Status)
	require.Equal(t, "connection refused", response.Checks["storage"].Message)
}

func TestHealthHandler_OptionalFailureDegrades(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Register("storage", ok, true)
	handler.Register("kafka", failing("no brokers"), false)

	response := handler.Run(context.Background())
	require.Equal(t, StatusDegraded, response.Status)
	require.Equal(t, StatusUnhealthy, response.Checks["kafka"].Status)

	require.Equal(t, http.StatusOK, serve(t, handler.ServeHTTP, "/healthz").Code)
	require.Equal(t, http.StatusOK, serve(t, handler.ReadinessHandler, "/readyz").Code)
}

func TestHealthHandler_NoChecks(t *testing.T) {
	response := NewHandler("dev").Run(context.Background())
	require.Equal(t, StatusHealthy, response.Status)
	require.Empty(t, response.Checks)
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	handler := NewHandler("dev")
	handler.timeout = 20 * time.Millisecond
	handler.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)

	response := handler.Run(context.Background())
	require.Equal(t, StatusUnhealthy, response.Status)
	require.Contains(t, response.Checks["slow"].Message, "deadline exceeded")
}

func TestHealthHandler_RegisterReplaces(t *testing.T) {
	handler := NewHandler("dev")
	handler.Register("storage", failing("down"), true)
	handler.Register("storage", ok, true)

	require.Equal(t, StatusHealthy, handler.Run(context.Background()).Status)
}

func TestReadinessHandler_NotReady(t *testing.T) {
	handler := NewHandler("dev")
	handler.Register("storage", failing("down"), true)

	rec := serve(t, handler.ReadinessHandler, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "not ready", rec.Body.String())
}

func TestLivenessHandler(t *testing.T) {
	rec := serve(t, LivenessHandler, "/livez")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
