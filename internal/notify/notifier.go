// Package notify turns recorded matches into per-party messages and hands
// them to a delivery channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
	domerrors "github.com/garyellow/ntpu-section-swap/internal/errors"
	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
)

// Notifier delivers one text message to a recipient reference (a chat id or
// contact handle).
type Notifier interface {
	Notify(ctx context.Context, ref, text string) error
}

// Party is one side of a match as shown to the other side.
type Party struct {
	UserID      string
	Ref         string // delivery reference; empty means unreachable
	Handle      string
	DisplayName string
	Holds       string // section label, empty if none
	Wants       string
}

// Match is a newly recorded pair.
type Match struct {
	Course  string
	Rule    string
	Quality int
	A, B    Party
}

// Delivery statuses.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Delivery is the result for one recipient.
type Delivery struct {
	UserID string
	Status string
	Err    error
}

// Outcome holds the deliveries to A and B, in that order.
type Outcome [2]Delivery

// Sent counts successful deliveries.
func (o Outcome) Sent() int {
	n := 0
	for _, d := range o {
		if d.Status == StatusSent {
			n++
		}
	}
	return n
}

// Failed counts failed deliveries.
func (o Outcome) Failed() int {
	n := 0
	for _, d := range o {
		if d.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Adapter notifies both parties of a match independently: a missing reference
// or a failed send for one party never affects the other.
type Adapter struct {
	notifier Notifier
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewAdapter creates an Adapter. A non-positive timeout means 10s.
func NewAdapter(n Notifier, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{notifier: n, timeout: timeout, metrics: m, logger: log.WithModule("notify")}
}

// NotifyPair sends one message to each party naming the other party.
func (a *Adapter) NotifyPair(ctx context.Context, m Match) Outcome {
	var (
		out Outcome
		wg  sync.WaitGroup
	)
	wg.Go(func() { out[0] = a.deliver(ctx, m, m.A, m.B) })
	wg.Go(func() { out[1] = a.deliver(ctx, m, m.B, m.A) })
	wg.Wait()
	return out
}

func (a *Adapter) deliver(ctx context.Context, m Match, to, other Party) Delivery {
	d := Delivery{UserID: to.UserID}
	log := a.logger.WithField("recipient", to.UserID)

	if to.Ref == "" {
		d.Status = StatusSkipped
		d.Err = domerrors.ErrNotifyUnavailable
		log.DebugContext(ctx, "No contact reference; notification skipped")
		a.metrics.RecordNotification(d.Status)
		return d
	}

	ctx, cancel := context.WithTimeout(ctxutil.WithUserID(ctx, to.UserID), a.timeout)
	defer cancel()

	err := a.notifier.Notify(ctx, to.Ref, Compose(m, other))
	switch {
	case err == nil:
		d.Status = StatusSent
	case errors.Is(err, domerrors.ErrNotifyUnavailable):
		d.Status = StatusSkipped
		d.Err = err
		log.WithError(err).DebugContext(ctx, "Recipient not reachable on this channel")
	default:
		d.Status = StatusFailed
		d.Err = err
		if errors.Is(err, context.DeadlineExceeded) {
			d.Err = fmt.Errorf("%w: %w", domerrors.ErrTimeout, err)
		}
		log.WithError(d.Err).WarnContext(ctx, "Failed to send match notification")
	}
	a.metrics.RecordNotification(d.Status)
	return d
}

var ruleTitles = map[string]string{
	"mutual_swap":     "Perfect swap match",
	"partial_swap":    "Partial swap match",
	"drop_to_request": "Someone wants the seat you are dropping",
	"request_to_drop": "A seat you requested is opening up",
	"cross_type":      "Swap opportunity",
}

// Compose renders the message for the recipient of m about other.
func Compose(m Match, other Party) string {
	title, ok := ruleTitles[m.Rule]
	if !ok {
		title = "New match"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s", title, m.Course)
	if m.Quality > 0 && m.Quality < 100 {
		fmt.Fprintf(&b, " (%d%%)", m.Quality)
	}
	b.WriteString("\n\n")

	b.WriteString("Contact: ")
	b.WriteString(ContactLabel(other))
	if other.Holds != "" {
		b.WriteString("\nHas: " + other.Holds)
	}
	if other.Wants != "" {
		b.WriteString("\nWants: " + other.Wants)
	}
	return b.String()
}

// ContactLabel names a party as "Name (@handle)", falling back to whichever
// part exists and finally to "Anonymous".
func ContactLabel(p Party) string {
	name := p.DisplayName
	if name == "" {
		name = "Anonymous"
	}
	if p.Handle == "" {
		return name
	}
	return name + " (" + p.Handle + ")"
}
