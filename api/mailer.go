package handler

import (
	"fmt"
	"html"
	"log"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer dispatches the admin notification for a processed lead. Delivery
// is best-effort: a failed send never changes the webhook response.
type Mailer interface {
	SendLeadReport(subject, htmlBody string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

// NewMailerFromConfig builds the SMTP mailer, or nil when SMTP or the
// admin address is not configured (notifications are then skipped).
func NewMailerFromConfig(config *Config) Mailer {
	if !config.HasMailConfig() {
		return nil
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword),
		from:   config.FromEmail,
		to:     config.AdminEmail,
	}
}

func (m *smtpMailer) SendLeadReport(subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send lead report: %w", err)
	}
	return nil
}

// LeadReportSubject is the fixed subject line for admin notifications
const LeadReportSubject = "Lead Received and Processed"

// ComposeLeadReport renders the fixed-schema HTML summary of a processed
// lead, including the raw Pipedrive deal response for diagnostics.
func ComposeLeadReport(lead *Lead, result *LeadResult) string {
	var b strings.Builder

	row := func(label, value string) {
		fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>", label, html.EscapeString(value))
	}

	b.WriteString("<html><body>")
	b.WriteString("<h2>A new lead has been received and processed:</h2>")
	row("Page URL", lead.PageURL)
	row("Email", lead.Email)
	row("First Name", lead.FirstName)
	row("Last Name", lead.LastName)
	row("Highest Qualification", lead.HighestQualification)
	row("Callback Request", lead.CallbackReadable())
	row("Product of Interest", lead.ProductOfInterest)
	row("Variant", lead.Variant)
	row("IP Address", lead.IPAddress)
	row("Page Name", lead.PageName)
	row("Page UUID", lead.PageUUID)
	row("Date Submitted", lead.DateSubmitted)
	row("Time Submitted", lead.TimeSubmitted)
	fmt.Fprintf(&b, "<h3>Pipedrive Response:</h3><pre>%s</pre>", html.EscapeString(result.DealResponseBody))
	fmt.Fprintf(&b, "<p><strong>HTTP Status Code:</strong> %d</p>", result.DealResponseStatus)
	b.WriteString("</body></html>")

	return b.String()
}

// notifyAdmin fires the report in the background and only logs failures
func notifyAdmin(mailer Mailer, lead *Lead, result *LeadResult) {
	if mailer == nil {
		return
	}
	body := ComposeLeadReport(lead, result)
	go func() {
		if err := mailer.SendLeadReport(LeadReportSubject, body); err != nil {
			log.Printf("⚠️  Lead report email failed: %v", err)
		}
	}()
}
