// Package mailer delivers account emails. Delivery is best effort; callers
// must not fail an operation because an email did not go out.
package mailer

import (
	"context"
	"log/slog"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes outgoing mail to the log instead of an SMTP relay. Used in
// development and as the default until a real provider is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.Info("password reset email", "to", email, "token", token)
	return nil
}
