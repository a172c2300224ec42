package complaints

import (
	"strings"
	"time"
)

// Complaint statuses. Registered is the initial state; the rest are set by
// the admin surface.
const (
	StatusRegistered         = "Registered"
	StatusUnderInvestigation = "Under Investigation"
	StatusResolved           = "Resolved"
	StatusClosed             = "Closed"
	StatusRejected           = "Rejected"
)

var validStatuses = []string{
	StatusRegistered,
	StatusUnderInvestigation,
	StatusResolved,
	StatusClosed,
	StatusRejected,
}

// NormalizeStatus returns the canonical spelling of status, matching case-insensitively.
func NormalizeStatus(status string) (string, error) {
	status = strings.TrimSpace(status)
	for _, s := range validStatuses {
		if strings.EqualFold(s, status) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Complaint is a registered cybercrime report.
type Complaint struct {
	ID            string    `json:"id"`
	TicketNumber  string    `json:"ticket_number"`
	SenderID      string    `json:"sender_id"`
	Name          string    `json:"name"`
	FatherName    string    `json:"father_name"`
	DOB           string    `json:"dob"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Village       string    `json:"village"`
	PostOffice    string    `json:"post_office"`
	PoliceStation string    `json:"police_station"`
	District      string    `json:"district"`
	Pincode       string    `json:"pincode"`
	FraudCategory string    `json:"fraud_category"`
	Description   string    `json:"description"`
	MediaPath     string    `json:"media_path,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PublicView is what an unauthenticated status lookup returns.
type PublicView struct {
	TicketNumber  string    `json:"ticket_number"`
	FraudCategory string    `json:"fraud_category"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public strips personal details from c.
func (c *Complaint) Public() PublicView {
	return PublicView{
		TicketNumber:  c.TicketNumber,
		FraudCategory: c.FraudCategory,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
	}
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// phoneKey reduces a phone number to its last ten digits so +91, 0 and
// bare forms compare equal. Inputs with fewer than ten digits yield "".
func phoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) < 10 {
		return ""
	}
	return d[len(d)-10:]
}

// isTicketQuery reports whether q is shaped like a ticket number.
func isTicketQuery(q string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(q)), "CYB-")
}
