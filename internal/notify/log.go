package notify

import (
	"context"

	"github.com/avolhov/recovery-server/internal/logger"
	"github.com/avolhov/recovery-server/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes outgoing mail to the log instead of delivering it.
// Used in local and development environments where no SMTP relay exists.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(l *logger.Logger) *LogNotifier {
	return &LogNotifier{
		logger: l,
	}
}

func (n *LogNotifier) Send(ctx context.Context, notification model.Notification) error {
	attrs := []any{
		"to", notification.To,
		"subject", notification.Subject,
		"template", notification.Template,
	}
	for k, v := range notification.Variables {
		attrs = append(attrs, "var."+k, v)
	}

	n.logger.InfoContext(ctx, "outgoing notification", attrs...)

	return nil
}
