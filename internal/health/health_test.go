package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	if h, ok := handler.(*Handler); ok {
		h.Register(mux)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz_Healthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewStorageChecker("memory", memory.NewStore()))

	rec := serve(t, handler, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var response Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "v1.0.0", response.Version)
	require.Contains(t, response.Checks, "storage")
	assert.Equal(t, "storage:memory", response.Checks["storage"].Name)
}

func TestHealthz_Unhealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewStorageChecker("postgres", failingPinger{err: errors.New("connection refused")}))

	rec := serve(t, handler, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, "connection refused", response.Checks["storage"].Message)
}

func TestReadyz(t *testing.T) {
	handler := NewHandler("dev")
	rec := serve(t, handler, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	handler.RegisterChecker("storage", NewStorageChecker("mongodb", failingPinger{err: errors.New("no primary")}))
	rec = serve(t, handler, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())
}

func TestLivez(t *testing.T) {
	rec := serve(t, NewHandler("dev"), "/livez")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestChecksRespectTimeout(t *testing.T) {
	handler := NewHandler("dev")
	handler.timeout = 20 * time.Millisecond
	handler.RegisterChecker("slow", NewFuncChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	checks, overall := handler.runChecks(context.Background())
	assert.Equal(t, StatusUnhealthy, overall)
	assert.Equal(t, context.DeadlineExceeded.Error(), checks["slow"].Message)
}
