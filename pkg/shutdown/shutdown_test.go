package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ReverseOrder(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	var order []string
	for _, name := range []string{"database", "inflight", "http", "worker"} {
		name := name
		m.RegisterNoErr(name, func() { order = append(order, name) })
	}

	errs := m.Shutdown()

	assert.Empty(t, errs)
	assert.Equal(t, []string{"worker", "http", "inflight", "database"}, order)
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestManager_ContinuesAfterFailure(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	closed := false
	m.RegisterNoErr("database", func() { closed = true })
	m.RegisterCloser("secrets", closer{err: errors.New("close failed")})

	errs := m.Shutdown()

	require.Len(t, errs, 1)
	assert.EqualError(t, errs["secrets"], "close failed")
	assert.True(t, closed)
}

func TestInFlightTracker_WaitsForWork(t *testing.T) {
	tracker := NewInFlightTracker("payments", zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})

	h := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}()
	<-started

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- tracker.Shutdown(context.Background()) }()

	require.Eventually(t, func() bool {
		tracker.mu.Lock()
		defer tracker.mu.Unlock()
		return tracker.draining
	}, time.Second, 5*time.Millisecond)

	// New work is refused while draining
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	select {
	case <-shutdownDone:
		t.Fatal("shutdown returned before in-flight work finished")
	default:
	}

	close(release)
	wg.Wait()
	assert.NoError(t, <-shutdownDone)
}

func TestInFlightTracker_Timeout(t *testing.T) {
	tracker := NewInFlightTracker("payments", zap.NewNop())
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
	assert.False(t, tracker.Add())
}

func TestBackgroundWorker(t *testing.T) {
	w := NewBackgroundWorker("re-authorization", zap.NewNop())

	stopped := make(chan struct{})
	w.Start(func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	require.NoError(t, w.Shutdown(context.Background()))
	select {
	case <-stopped:
	default:
		t.Fatal("worker did not observe cancellation")
	}
}

func TestBackgroundWorker_Timeout(t *testing.T) {
	w := NewBackgroundWorker("stuck", zap.NewNop())
	block := make(chan struct{})
	defer close(block)
	w.Start(func(context.Context) { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, w.Shutdown(ctx), context.DeadlineExceeded)
}
