package notifier

import (
	"context"
	"fmt"

	"govdocs/utils"

	"github.com/go-resty/resty/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

type EmailSender interface {
	SendEmail(ctx context.Context, toName, toEmail string, msg utils.Email) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (s *SendGridSender) SendEmail(ctx context.Context, toName, toEmail string, msg utils.Email) error {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(toName, toEmail), msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// RestySMSSender posts to a bulk SMS gateway that takes the key and
// recipient as query parameters.
type RestySMSSender struct {
	client *resty.Client
	apiURL string
	apiKey string
}

func NewRestySMSSender(apiURL, apiKey string) *RestySMSSender {
	return &RestySMSSender{client: resty.New(), apiURL: apiURL, apiKey: apiKey}
}

func (s *RestySMSSender) SendSMS(ctx context.Context, phone, text string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"authorization": s.apiKey,
			"route":         "q",
			"message":       text,
			"numbers":       phone,
		}).
		Get(s.apiURL)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogSender stands in for unconfigured channels and only logs.
type LogSender struct {
	Logger logrus.FieldLogger
}

func (l LogSender) SendEmail(ctx context.Context, toName, toEmail string, msg utils.Email) error {
	l.Logger.WithFields(logrus.Fields{"to": toEmail, "subject": msg.Subject}).Info("Email (not sent, no provider configured)")
	return nil
}

func (l LogSender) SendSMS(ctx context.Context, phone, text string) error {
	l.Logger.WithFields(logrus.Fields{"to": phone}).Debug("SMS (not sent, no gateway configured)")
	return nil
}
