package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	up := HealthCheck{Name: "database", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	t.Run("all checks pass", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/health", NewHealthHandler("1.2.3", time.Second, up).Health)

		w := doRequest(r, http.MethodGet, "/health", uuid.Nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[HealthResponse](t, w)
		assert.Equal(t, "ok", got.Status)
		assert.Equal(t, "1.2.3", got.Version)
		assert.Equal(t, "up", got.Checks["database"])
		assert.NotEmpty(t, got.GoVersion)
	})

	t.Run("failing check degrades", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/health", NewHealthHandler("1.2.3", time.Second, up, down).Health)

		w := doRequest(r, http.MethodGet, "/health", uuid.Nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		got := decodeData[HealthResponse](t, w)
		assert.Equal(t, "degraded", got.Status)
		assert.Equal(t, "up", got.Checks["database"])
		assert.Equal(t, "down: connection refused", got.Checks["redis"])
	})

	t.Run("slow check times out", func(t *testing.T) {
		slow := HealthCheck{Name: "database", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		r := newTestRouter()
		r.GET("/health", NewHealthHandler("dev", 20*time.Millisecond, slow).Health)

		w := doRequest(r, http.MethodGet, "/health", uuid.Nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
