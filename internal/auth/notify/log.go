package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes rendered messages to the logger instead of sending them.
// Intended for development, where the verification link in the log is enough.
type LogNotifier struct {
	mailer
	logger *slog.Logger
}

func NewLogNotifier(r *Renderer, logger *slog.Logger) *LogNotifier {
	n := &LogNotifier{logger: logger}
	n.mailer = mailer{renderer: r, deliver: n.deliver}
	return n
}

func (n *LogNotifier) deliver(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)
	return nil
}
