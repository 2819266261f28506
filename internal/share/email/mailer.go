// Package email delivers organization invitations. The SMTP transport
// is optional: without a configured host, deliveries are logged instead
// of sent, which keeps development setups working.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/pkg/slogx"
)

// Mailer sends invitation emails over SMTP, or logs them when no host
// is configured.
type Mailer struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string

	// BaseURL is the public address of the service, used to build the
	// confirmation link in the mail body.
	BaseURL string
}

func (m *Mailer) SendInvite(
	ctx context.Context,
	to string,
	org domain.Organization,
	inviter domain.User,
	token string,
) error {
	log := slogx.FromContext(ctx)

	subject := fmt.Sprintf("%s invited you to join %s", inviter.Username, org.Name)
	link := strings.TrimSuffix(m.BaseURL, "/") + "/v1/invites/confirm?token=" + url.QueryEscape(token)

	if m.Host == "" {
		log.Info("invite email (no smtp host configured, not sent)",
			slog.String("to", to),
			slog.String("subject", subject),
		)
		return nil
	}

	body := fmt.Sprintf(
		"%s has invited you to join the organization %q.\r\n\r\n"+
			"Confirm your membership: %s\r\n",
		inviter.Username, org.Name, link,
	)
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send invite email: %w", err)
	}

	log.Info("invite email sent", slog.String("to", to))
	return nil
}
