package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/cybersathi/internal/complaints"
)

const (
	msgMenu = "👋 Welcome to *CyberSathi*, the cyber crime helpline.\n" +
		"Reply with:\n" +
		"*A* - Register a new complaint\n" +
		"*B* - Check complaint status\n" +
		"*C* - Request account unfreeze"
	msgInvalidOption = "❌ Invalid option. Please reply with A, B or C."

	msgInvalidDOB     = "❌ Invalid date. Please enter your date of birth as DD-MM-YYYY."
	msgInvalidPhone   = "❌ Invalid mobile number. Please enter 10 to 13 digits, e.g. +919876543210."
	msgInvalidEmail   = "❌ Invalid email address. Please enter it as name@example.com."
	msgInvalidPincode = "❌ Invalid PIN code. Please enter exactly 6 digits."

	msgUnfreezeAck = "✅ Your account unfreeze request has been noted. " +
		"The cyber cell will coordinate with your bank and contact you."
	msgNotFound      = "❌ No record found for the given ticket number or mobile number."
	msgUploadAck     = "📎 File received. You can send more files or type *DONE* when finished."
	msgUnsupported   = "⚠️ Only text messages, images and documents are supported."
	msgCancelled     = "Your request has been cancelled. Send any message to start again."
	msgRegisterRetry = "⚠️ We could not register your complaint right now. " +
		"Please send your description again in a few minutes."
	msgLookupRetry = "⚠️ We could not check the status right now. Please send your ticket number again shortly."

	placeholderImage    = "[image uploaded]"
	placeholderDocument = "[document uploaded]"
)

var stagePrompts = map[Stage]string{
	StageMenu:          msgMenu,
	StageName:          "Please enter your full name.",
	StageFather:        "Please enter your father's / guardian's name.",
	StageDOB:           "Please enter your date of birth (DD-MM-YYYY).",
	StagePhone:         "Please enter your mobile number (e.g. +919876543210).",
	StageEmail:         "Please enter your email address.",
	StageVillage:       "Please enter your village / town.",
	StagePostOffice:    "Please enter your post office.",
	StagePoliceStation: "Please enter your nearest police station.",
	StageDistrict:      "Please enter your district.",
	StagePincode:       "Please enter your 6-digit PIN code.",
	StageFraud: "Select the type of fraud:\n" +
		"1 - " + CategoryUPIBanking + "\n" +
		"2 - " + CategorySocialMedia + "\n" +
		"3 - " + CategoryLoanApp + "\n" +
		"4 - " + CategoryOther,
	StageDesc:     "Please describe what happened. You can also send a screenshot or document.",
	StageStatus:   "Please send your ticket number or registered mobile number.",
	StageUnfreeze: "Please share your bank name, account number and why the account was frozen.",
}

// Prompt returns the text shown when a sender enters stage s.
func Prompt(s Stage) string {
	return stagePrompts[s]
}

func confirmationText(ticket string) string {
	return fmt.Sprintf("✅ Your complaint has been registered.\nTicket number: *%s*\nPlease keep it for future reference.", ticket)
}

func stationText(name, phone string) string {
	return fmt.Sprintf("🚔 Nearest police station: %s\n📞 %s", name, phone)
}

func statusSummary(c *complaints.Complaint) string {
	var b strings.Builder
	b.WriteString("📄 Complaint found\n")
	fmt.Fprintf(&b, "Ticket: %s\n", c.TicketNumber)
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Fraud type: %s\n", c.FraudCategory)
	fmt.Fprintf(&b, "Status: %s", c.Status)
	if !c.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\nRegistered on: %s", c.CreatedAt.UTC().Format(time.DateOnly))
	}
	return b.String()
}
