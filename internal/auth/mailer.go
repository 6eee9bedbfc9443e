package auth

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Mailer delivers confirmation codes out of band.
type Mailer interface {
	SendConfirmationCode(ctx context.Context, email, username, code string) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("YaMDb", from),
	}
}

func (m *SendGridMailer) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	to := mail.NewEmail(username, email)
	plain := fmt.Sprintf("Your confirmation code is: %s", code)
	html := fmt.Sprintf("<strong>Your confirmation code is: %s</strong>", code)
	message := mail.NewSingleEmail(m.from, "Your confirmation code", to, plain, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send confirmation code: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send confirmation code: sendgrid status %d", resp.StatusCode)
	}
	logrus.WithFields(logrus.Fields{"username": username, "status": resp.StatusCode}).Info("confirmation code sent")
	return nil
}

// LogMailer writes codes to the log. Used when no mail provider is set up.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) SendConfirmationCode(_ context.Context, email, username, code string) error {
	m.Log.WithFields(logrus.Fields{
		"username": username,
		"email":    email,
		"code":     code,
	}).Info("confirmation code issued")
	return nil
}
