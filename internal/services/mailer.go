package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/devradar/backend/internal/models"
)

// Mailer sends the welcome e-mail after a registration.
type Mailer interface {
	SendWelcome(ctx context.Context, to string, dev *models.Developer) error
}

type ResendMailer struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

// NewResendMailer returns a mailer that only logs when apiKey or from is empty.
func NewResendMailer(apiKey, from string, logger *slog.Logger) *ResendMailer {
	m := &ResendMailer{
		from:   strings.TrimSpace(from),
		logger: logger,
	}
	if key := strings.TrimSpace(apiKey); key != "" && m.from != "" {
		m.client = resend.NewClient(key)
	}
	return m
}

func (m *ResendMailer) Enabled() bool {
	return m != nil && m.client != nil
}

func (m *ResendMailer) SendWelcome(ctx context.Context, to string, dev *models.Developer) error {
	if !m.Enabled() {
		m.logger.Debug("mail disabled, skipping welcome e-mail", slog.String("github_username", dev.GithubUsername))
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "You're on the map",
		Html: fmt.Sprintf(
			`<p>Hi %s,</p><p>Your profile is live. Developers nearby searching for %s can now find you.</p>`,
			html.EscapeString(dev.Name),
			html.EscapeString(strings.Join(dev.Techs, ", ")),
		),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send welcome e-mail: %w", err)
	}
	m.logger.Info("welcome e-mail sent", slog.String("github_username", dev.GithubUsername), slog.String("id", sent.Id))
	return nil
}
