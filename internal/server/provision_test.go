package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sngm3741/dispatch-contact/api/internal/metrics"
)

type flakyIndexes struct {
	failuresLeft atomic.Int32
	calls        atomic.Int32
	provisioned  atomic.Bool
}

func (f *flakyIndexes) EnsureIndexes(ctx context.Context) error {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("attempt without deadline")
	}
	if f.failuresLeft.Add(-1) >= 0 {
		return errors.New("server selection error: no primary")
	}
	f.provisioned.Store(true)
	return nil
}

func (f *flakyIndexes) Ready(context.Context) bool { return f.provisioned.Load() }

func readyStatus(h http.Handler) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	return rec.Code
}

func TestProvisionWithRetryFlipsReadiness(t *testing.T) {
	store := &flakyIndexes{}
	store.failuresLeft.Store(3)

	registry := prometheus.NewRegistry()
	router := newRouter(routerConfig{
		Logger:    zap.NewNop(),
		Collector: metrics.NewCollector(registry),
		Gatherer:  registry,
		Ready:     store.Ready,
	})
	assert.Equal(t, http.StatusServiceUnavailable, readyStatus(router))

	core, logs := observer.New(zap.WarnLevel)
	err := provisionWithRetry(context.Background(), zap.New(core), "contact_messages", store, backoff.NewConstantBackOff(5*time.Millisecond))
	require.NoError(t, err)

	assert.EqualValues(t, 4, store.calls.Load())
	assert.Equal(t, 3, logs.FilterMessage("index provisioning failed, retrying").Len())
	assert.Equal(t, http.StatusOK, readyStatus(router))
}

func TestProvisionWithRetryStopsWhenContextEnds(t *testing.T) {
	store := &flakyIndexes{}
	store.failuresLeft.Store(1 << 30)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- provisionWithRetry(ctx, zap.NewNop(), "contact_messages", store, backoff.NewConstantBackOff(10*time.Millisecond))
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.False(t, store.provisioned.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("provisioning kept retrying after the context ended")
	}
}

func TestNewProvisionBackOffNeverGivesUp(t *testing.T) {
	b := newProvisionBackOff().(*backoff.ExponentialBackOff)

	assert.Equal(t, provisionInitialInterval, b.InitialInterval)
	assert.Equal(t, provisionMaxInterval, b.MaxInterval)
	assert.Zero(t, b.MaxElapsedTime)
	for i := 0; i < 50; i++ {
		assert.NotEqual(t, backoff.Stop, b.NextBackOff())
	}
}
