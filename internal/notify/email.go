package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// ErrEmailDisabled is returned by a SendGridSender built without an API key.
var ErrEmailDisabled = errors.New("notify: sendgrid not configured")

const defaultFromName = "CyberSathi Helpline"

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outgoing email. HTML falls back to an escaped copy of
// Body. Ticket, when set, is attached as a SendGrid custom arg.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
	Ticket  string
	// Category tags the message in SendGrid activity (confirmation, desk_alert).
	Category string
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender delivers through the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	name := strings.TrimSpace(cfg.FromName)
	if name == "" {
		name = defaultFromName
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(name, cfg.FromEmail),
		logger: logger.Component("sendgrid"),
	}
}

func (s *SendGridSender) buildMessage(msg EmailMessage) *mail.SGMailV3 {
	body := msg.HTML
	if body == "" {
		body = "<pre>" + html.EscapeString(msg.Body) + "</pre>"
	}
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	if msg.Ticket != "" {
		p.SetCustomArg("ticket_number", msg.Ticket)
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", msg.Body), mail.NewContent("text/html", body))
	m.AddCategories("cybersathi")
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	return m
}

// Send delivers msg. Non-2xx responses are errors.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return ErrEmailDisabled
	}
	resp, err := s.client.SendWithContext(ctx, s.buildMessage(msg))
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body, "ticket", msg.Ticket)
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	s.logger.Info("email sent", "category", msg.Category, "ticket", msg.Ticket, "status", resp.StatusCode)
	return nil
}

// StubEmailSender only logs. It stands in when SendGrid is not configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger.Component("email-stub")}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent (sendgrid disabled)", "category", msg.Category, "ticket", msg.Ticket, "subject", msg.Subject)
	return nil
}
