package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevin07696/stripe-payment-service/pkg/encoding"
	"github.com/kevin07696/stripe-payment-service/pkg/httpclient"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"go.uber.org/zap"
)

// Event types sent to the merchant endpoint
const (
	EventReAuthorizationFailed = "reauthorization.failed"
	EventPaymentReconciled     = "payment.reconciled"
)

// Signature headers
const (
	HeaderSignature = "X-Signature"
	HeaderEventType = "X-Webhook-Event-Type"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// Event is a notification about something the merchant should act on
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	EventType string                 `json:"event_type"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType string, data map[string]interface{}) *Event {
	return &Event{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Config holds the merchant endpoint and delivery policy
type Config struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
}

// Notifier delivers signed events to the merchant endpoint
type Notifier struct {
	httpClient  *http.Client
	backoff     resilience.BackoffStrategy
	logger      *zap.Logger
	url         string
	secret      string
	maxAttempts int
}

// Option customizes a Notifier
type Option func(*Notifier)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.httpClient = c }
}

// WithBackoff replaces the delay between delivery attempts
func WithBackoff(b resilience.BackoffStrategy) Option {
	return func(n *Notifier) { n.backoff = b }
}

// NewNotifier creates a notifier. With an empty URL every Notify is a no-op.
func NewNotifier(cfg Config, logger *zap.Logger, opts ...Option) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	n := &Notifier{
		httpClient:  httpclient.New(httpclient.NotificationConfig(), timeout),
		backoff:     resilience.NotificationBackoff(),
		logger:      logger,
		url:         cfg.URL,
		secret:      cfg.Secret,
		maxAttempts: attempts,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether a merchant endpoint is configured
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Notify delivers event, retrying failed attempts with backoff.
// A 4xx answer other than 408 or 429 is not retried.
func (n *Notifier) Notify(ctx context.Context, event *Event) error {
	if !n.Enabled() {
		return nil
	}

	payload, err := encoding.EncodeJSON(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	start := time.Now()
	err = resilience.Retry(ctx, n.maxAttempts, n.backoff, func(attempt int) error {
		err := n.deliver(ctx, event, payload)
		if err != nil {
			n.logger.Warn("Notification delivery failed",
				zap.String("event_type", event.EventType),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			return err
		}
		n.logger.Info("Notification delivered",
			zap.String("event_type", event.EventType),
			zap.Int("attempt", attempt+1),
		)
		return nil
	})
	if err != nil {
		observability.RecordNotificationDelivery(event.EventType, "failed", time.Since(start).Seconds())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("notification delivery failed: %w", err)
	}

	observability.RecordNotificationDelivery(event.EventType, "success", time.Since(start).Seconds())
	return nil
}

func (n *Notifier) deliver(ctx context.Context, event *Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return resilience.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(payload, n.secret))
	req.Header.Set(HeaderEventType, event.EventType)
	req.Header.Set(HeaderTimestamp, event.Timestamp.Format(time.RFC3339))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("endpoint returned HTTP %d: %s", resp.StatusCode, string(body))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

// Sign creates the HMAC-SHA256 signature of payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
