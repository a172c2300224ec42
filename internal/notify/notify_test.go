package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/cybersathi/internal/complaints"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func sampleComplaint() *complaints.Complaint {
	return &complaints.Complaint{
		TicketNumber:  "CYB-20261015-ABC123",
		Name:          "Rahul <script>",
		Email:         "rahul@example.com",
		Phone:         "+919876543210",
		District:      "Khordha",
		PoliceStation: "Infocity",
		FraudCategory: "UPI/Banking",
		Description:   strings.Repeat("x", 600),
		Status:        complaints.StatusRegistered,
	}
}

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, nil))

	s := NewSendGridSender(SendGridConfig{APIKey: "SG.test", FromEmail: "noreply@cybersathi.in"}, nil)
	require.NotNil(t, s)
	assert.Equal(t, "CyberSathi Helpline", s.from.Name)

	msg := s.buildMessage(EmailMessage{To: "a@b.in", ToName: "A", Subject: "Hi", Body: "a < b", Ticket: "CYB-20261015-ABC123", Category: "confirmation"})
	assert.Equal(t, "Hi", msg.Subject)
	assert.Equal(t, "noreply@cybersathi.in", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "a@b.in", msg.Personalizations[0].To[0].Address)
	assert.Equal(t, "CYB-20261015-ABC123", msg.Personalizations[0].CustomArgs["ticket_number"])
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "a < b", msg.Content[0].Value)
	assert.Equal(t, "<pre>a &lt; b</pre>", msg.Content[1].Value)
	assert.Equal(t, []string{"cybersathi", "confirmation"}, msg.Categories)
}

func TestSendGridSender_SendUnconfigured(t *testing.T) {
	var s *SendGridSender
	assert.ErrorIs(t, s.Send(context.Background(), EmailMessage{To: "a@b.in"}), ErrEmailDisabled)
}

func TestStubEmailSender(t *testing.T) {
	assert.NoError(t, NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@b.in"}))
}

func TestComplaintMailer_SendsConfirmationAndDeskAlert(t *testing.T) {
	sender := &captureSender{}
	m := NewComplaintMailer(sender, "desk@cybercell.gov.in", nil)

	require.NoError(t, m.ComplaintRegistered(context.Background(), sampleComplaint()))
	require.Len(t, sender.sent, 2)

	citizen := sender.sent[0]
	assert.Equal(t, "rahul@example.com", citizen.To)
	assert.Contains(t, citizen.Subject, "CYB-20261015-ABC123")
	assert.Contains(t, citizen.Body, "Ticket number: CYB-20261015-ABC123")
	assert.Contains(t, citizen.HTML, "Rahul &lt;script&gt;")
	assert.Equal(t, "confirmation", citizen.Category)
	assert.Equal(t, "CYB-20261015-ABC123", citizen.Ticket)

	desk := sender.sent[1]
	assert.Equal(t, "desk@cybercell.gov.in", desk.To)
	assert.Contains(t, desk.Subject, "Khordha")
	assert.Contains(t, desk.Body, "...")
	assert.Less(t, len(desk.Body), 700)
	assert.Equal(t, "desk_alert", desk.Category)
}

func TestComplaintMailer_SkipsCitizenWithoutEmail(t *testing.T) {
	sender := &captureSender{}
	m := NewComplaintMailer(sender, "", nil)
	c := sampleComplaint()
	c.Email = ""

	require.NoError(t, m.ComplaintRegistered(context.Background(), c))
	assert.Empty(t, sender.sent)
}

func TestComplaintMailer_JoinsErrors(t *testing.T) {
	sender := &captureSender{err: errors.New("quota exceeded")}
	m := NewComplaintMailer(sender, "desk@cybercell.gov.in", nil)

	err := m.ComplaintRegistered(context.Background(), sampleComplaint())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "citizen confirmation")
	assert.Contains(t, err.Error(), "desk alert")
}
