package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.Register("storage", func(context.Context) error { return nil }, true)
	srv := startMetricsServer(ctx, fmt.Sprintf(":%d", port), log.WithField("test", "http"), healthHandler)
	require.NotNil(t, srv)
	waitForPort(t, port)

	base := fmt.Sprintf("http://localhost:%d", port)

	status, body := httpGet(t, base+"/metrics")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body)

	status, body = httpGet(t, base+"/healthz")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"storage"`)

	status, body = httpGet(t, base+"/livez")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body)

	status, body = httpGet(t, base+"/readyz")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ready", body)
}

func TestStartMetricsServer_NotReadyWhenStorageDown(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.Register("storage", func(context.Context) error { return errors.New("down") }, true)
	startMetricsServer(ctx, fmt.Sprintf(":%d", port), log.WithField("test", "http-down"), healthHandler)
	waitForPort(t, port)

	status, _ := httpGet(t, fmt.Sprintf("http://localhost:%d/readyz", port))
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = httpGet(t, fmt.Sprintf("http://localhost:%d/healthz", port))
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestStartMetricsServer_Shutdown(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	startMetricsServer(ctx, fmt.Sprintf(":%d", port), log.WithField("test", "http-shutdown"), healthcheck.NewHandler("dev"))
	waitForPort(t, port)

	cancel()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/livez", port))
		if err != nil {
			return true
		}
		resp.Body.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func waitForPort(t *testing.T, port int) {
	t.Helper()
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
}
