// Package notify delivers reminders straight to buyers: email through
// SendGrid and SMS through Twilio.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/MrJamesThe3rd/receivables/internal/reminder"
)

var ErrChannelDisabled = errors.New("channel not configured")

type Mailer interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type Messenger interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Config struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	Sandbox        bool

	TwilioAccountSID string
	TwilioAuthToken  string
	FromPhone        string
}

// Publisher routes each reminder to the client for its channel. A nil client
// disables that channel.
type Publisher struct {
	mailer    Mailer
	messenger Messenger
	from      *mail.Email
	fromPhone string
	sandbox   bool
}

// New builds the clients for every channel that has credentials.
func New(cfg Config) *Publisher {
	p := &Publisher{
		from:      mail.NewEmail(cfg.FromName, cfg.FromEmail),
		fromPhone: cfg.FromPhone,
		sandbox:   cfg.Sandbox,
	}

	if cfg.SendGridAPIKey != "" && cfg.FromEmail != "" {
		p.mailer = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.FromPhone != "" {
		p.messenger = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}).Api
	}

	return p
}

func NewWithClients(mailer Mailer, messenger Messenger, from *mail.Email, fromPhone string) *Publisher {
	return &Publisher{mailer: mailer, messenger: messenger, from: from, fromPhone: fromPhone}
}

// Enabled reports whether at least one channel can deliver.
func (p *Publisher) Enabled() bool {
	return p.mailer != nil || p.messenger != nil
}

func (p *Publisher) Publish(ctx context.Context, r reminder.Reminder) error {
	switch r.Channel {
	case reminder.ChannelEmail:
		return p.sendEmail(ctx, r)
	case reminder.ChannelSMS:
		return p.sendSMS(r)
	default:
		return fmt.Errorf("unknown reminder channel %q", r.Channel)
	}
}

func (p *Publisher) sendEmail(ctx context.Context, r reminder.Reminder) error {
	if p.mailer == nil {
		return fmt.Errorf("sending email to %s: %w", r.Recipient, ErrChannelDisabled)
	}

	to := mail.NewEmail("", r.Recipient)
	msg := mail.NewSingleEmail(p.from, r.Subject, to, r.Body, htmlBody(r.Body))

	if p.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := p.mailer.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", r.Recipient, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sending email to %s: sendgrid returned %d: %s", r.Recipient, resp.StatusCode, resp.Body)
	}

	return nil
}

func (p *Publisher) sendSMS(r reminder.Reminder) error {
	if p.messenger == nil {
		return fmt.Errorf("sending sms to %s: %w", r.Recipient, ErrChannelDisabled)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(r.Recipient)
	params.SetFrom(p.fromPhone)
	params.SetBody(r.Subject + "\n\n" + r.Body)

	if _, err := p.messenger.CreateMessage(params); err != nil {
		return fmt.Errorf("sending sms to %s: %w", r.Recipient, err)
	}

	return nil
}

func htmlBody(plain string) string {
	var b strings.Builder

	for para := range strings.SplitSeq(strings.TrimSpace(plain), "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}

	return b.String()
}
