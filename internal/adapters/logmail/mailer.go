package logmail

// Package logmail provides a VerificationMailer that writes messages to the
// structured log instead of delivering them. Used in development and as the
// default until an outbound mail relay is wired in deployment.

import (
	"context"
	"log/slog"

	"github.com/greenbasket/storefront/internal/ports"
)

var _ ports.VerificationMailer = (*Mailer)(nil)

// Mailer logs verification mails instead of sending them.
type Mailer struct {
	logger *slog.Logger
}

// NewMailer creates a log-backed mailer.
func NewMailer(logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{logger: logger}
}

func (m *Mailer) SendVerification(ctx context.Context, mail ports.VerificationMail) error {
	m.logger.InfoContext(ctx, "verification mail",
		slog.String("to", mail.To),
		slog.String("verify_url", mail.VerifyURL),
	)
	return nil
}
