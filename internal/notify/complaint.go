package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/cybersathi/internal/complaints"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// ComplaintMailer emails a confirmation to the citizen and, when a desk
// address is set, an alert to the cyber cell.
type ComplaintMailer struct {
	email     EmailSender
	deskEmail string
	logger    *logging.Logger
}

// NewComplaintMailer wires a mailer. email is required.
func NewComplaintMailer(email EmailSender, deskEmail string, logger *logging.Logger) *ComplaintMailer {
	if email == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ComplaintMailer{email: email, deskEmail: strings.TrimSpace(deskEmail), logger: logger.Component("notify")}
}

// ComplaintRegistered sends the notifications for c. Both sends are
// attempted; their errors are joined.
func (m *ComplaintMailer) ComplaintRegistered(ctx context.Context, c *complaints.Complaint) error {
	var errs []error
	if strings.TrimSpace(c.Email) != "" {
		if err := m.email.Send(ctx, citizenConfirmation(c)); err != nil {
			errs = append(errs, fmt.Errorf("notify: citizen confirmation: %w", err))
		}
	}
	if m.deskEmail != "" {
		if err := m.email.Send(ctx, deskAlert(m.deskEmail, c)); err != nil {
			errs = append(errs, fmt.Errorf("notify: desk alert: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Debug("complaint notifications sent", "ticket", c.TicketNumber)
	return nil
}

func citizenConfirmation(c *complaints.Complaint) EmailMessage {
	subject := fmt.Sprintf("CyberSathi complaint registered: %s", c.TicketNumber)
	body := fmt.Sprintf(
		"Dear %s,\n\nYour cyber crime complaint has been registered.\n\nTicket number: %s\nFraud type: %s\nStatus: %s\n\n"+
			"Quote this ticket number on WhatsApp to check the status.\nYou can also report at https://cybercrime.gov.in or call 1930.\n\nCyberSathi Helpline",
		c.Name, c.TicketNumber, c.FraudCategory, c.Status,
	)
	htmlBody := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your cyber crime complaint has been registered.</p>"+
			"<p><strong>Ticket number:</strong> %s<br><strong>Fraud type:</strong> %s<br><strong>Status:</strong> %s</p>"+
			"<p>Quote this ticket number on WhatsApp to check the status.<br>"+
			"You can also report at <a href=\"https://cybercrime.gov.in\">cybercrime.gov.in</a> or call 1930.</p><p>CyberSathi Helpline</p>",
		html.EscapeString(c.Name), html.EscapeString(c.TicketNumber),
		html.EscapeString(c.FraudCategory), html.EscapeString(c.Status),
	)
	return EmailMessage{To: c.Email, ToName: c.Name, Subject: subject, Body: body, HTML: htmlBody, Ticket: c.TicketNumber, Category: "confirmation"}
}

func deskAlert(to string, c *complaints.Complaint) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "New complaint %s\n\n", c.TicketNumber)
	fmt.Fprintf(&b, "Name: %s\nPhone: %s\nDistrict: %s\nPolice station: %s\n", c.Name, c.Phone, c.District, c.PoliceStation)
	fmt.Fprintf(&b, "Fraud type: %s\n\n%s\n", c.FraudCategory, truncate(c.Description, 500))
	if c.MediaPath != "" {
		fmt.Fprintf(&b, "\nAttachment: %s\n", c.MediaPath)
	}
	return EmailMessage{
		To:       to,
		ToName:   "Cyber Cell Desk",
		Subject:  fmt.Sprintf("[CyberSathi] %s - %s - %s", c.TicketNumber, c.FraudCategory, c.District),
		Body:     b.String(),
		Ticket:   c.TicketNumber,
		Category: "desk_alert",
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
