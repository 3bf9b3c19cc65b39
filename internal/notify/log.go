package notify

import (
	"context"

	"github.com/garyellow/ntpu-section-swap/internal/logger"
)

// LogNotifier writes notifications to the log. It is used when no delivery
// channel is configured.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithModule("notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, ref, text string) error {
	n.logger.WithFields(map[string]any{
		"ref":  ref,
		"text": text,
	}).InfoContext(ctx, "Match notification")
	return nil
}
