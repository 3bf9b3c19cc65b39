package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	domerrors "github.com/garyellow/ntpu-section-swap/internal/errors"
	"github.com/garyellow/ntpu-section-swap/internal/lineutil"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/ratelimit"
)

const senderName = "Section Swap"

// Pusher is the part of the LINE Messaging API client used for delivery.
type Pusher interface {
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// LineNotifier pushes text messages to LINE user ids.
type LineNotifier struct {
	client    Pusher
	limiter   *ratelimit.Limiter
	recipient *ratelimit.PerKeyLimiter
	metrics   *metrics.Metrics
}

// NewLineClient creates a Messaging API client for channelToken.
func NewLineClient(channelToken string) (*messaging_api.MessagingApiAPI, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create LINE client: %w", err)
	}
	return client, nil
}

// NewLineNotifier wraps client with a global limit of rps pushes per second
// and a per-recipient limit that keeps a sweep from flooding one user.
func NewLineNotifier(client Pusher, rps float64, m *metrics.Metrics) *LineNotifier {
	return &LineNotifier{
		client:  client,
		limiter: ratelimit.NewPerSecond(rps),
		recipient: ratelimit.NewPerKeyLimiter(ratelimit.PerKeyConfig{
			MaxTokens:     10,
			RefillRate:    10.0 / 60, // 10 per minute
			CleanupPeriod: 10 * time.Minute,
		}),
		metrics: m,
	}
}

// Notify pushes text to ref. Refs that are not LINE user ids report
// errors.ErrNotifyUnavailable.
func (n *LineNotifier) Notify(ctx context.Context, ref, text string) error {
	if !lineutil.IsUserID(ref) {
		return domerrors.ErrNotifyUnavailable
	}
	if !n.recipient.Allow(ref) {
		return fmt.Errorf("recipient rate limit exceeded")
	}

	start := time.Now()
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for push token: %w", err)
	}
	n.metrics.RecordRateLimiterWait("line_push", time.Since(start).Seconds())

	req := &messaging_api.PushMessageRequest{
		To: ref,
		Messages: []messaging_api.MessageInterface{
			lineutil.NewTextMessage(text, lineutil.NewSender(senderName)),
		},
	}

	// The SDK call is not context-aware; abandon it when ctx ends.
	errCh := make(chan error, 1)
	go func() {
		_, err := n.client.PushMessage(req, uuid.NewString())
		errCh <- err
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("push message: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops background limiter maintenance.
func (n *LineNotifier) Close() {
	n.recipient.Stop()
}
