package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotify_SignsPayload(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		gotType = r.Header.Get(HeaderEventType)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL, Secret: "merchant-secret"}, zap.NewNop())
	err := n.Notify(context.Background(), NewEvent(EventReAuthorizationFailed, map[string]interface{}{
		"transaction_id": "txn_1",
	}))
	require.NoError(t, err)

	assert.Equal(t, EventReAuthorizationFailed, gotType)
	assert.Equal(t, Sign(gotBody, "merchant-secret"), gotSig)
	assert.Contains(t, string(gotBody), `"transaction_id":"txn_1"`)
}

func TestNotify_RetriesUntilSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL, MaxAttempts: 3}, zap.NewNop(),
		WithBackoff(&resilience.FixedBackoff{Delay: time.Millisecond}))

	require.NoError(t, n.Notify(context.Background(), NewEvent(EventReAuthorizationFailed, nil)))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNotify_GivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL, MaxAttempts: 2}, zap.NewNop(),
		WithBackoff(&resilience.FixedBackoff{Delay: time.Millisecond}))

	err := n.Notify(context.Background(), NewEvent(EventReAuthorizationFailed, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNotify_DisabledWithoutURL(t *testing.T) {
	n := NewNotifier(Config{}, zap.NewNop())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), NewEvent(EventReAuthorizationFailed, nil)))
}

func TestNotify_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL, MaxAttempts: 3}, zap.NewNop(),
		WithBackoff(&resilience.FixedBackoff{Delay: time.Millisecond}))

	err := n.Notify(context.Background(), NewEvent(EventPaymentReconciled, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNotify_RateLimitedIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL, MaxAttempts: 2}, zap.NewNop(),
		WithBackoff(&resilience.FixedBackoff{Delay: time.Millisecond}))

	require.NoError(t, n.Notify(context.Background(), NewEvent(EventPaymentReconciled, nil)))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
