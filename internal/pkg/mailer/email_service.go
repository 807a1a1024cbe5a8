package mailer

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

// RunReport is what a finished run looks like in a notification mail
type RunReport struct {
	RunID        string
	Status       string // COMPLETED or FAILED
	ReviewCycles int
	OpenIssues   int
	WrittenFiles int
	Error        string
	Hint         string
}

type IEmailService interface {
	SendRunReport(toEmail string, report RunReport) error
}

// sender is the part of gomail.Dialer we use
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	return newEmailService(gomail.NewDialer(host, port, username, password), senderEmail, senderName)
}

func newEmailService(dialer sender, senderEmail, senderName string) *emailService {
	return &emailService{
		dialer:      dialer,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendRunReport(toEmail string, report RunReport) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject(report))
	m.SetBody("text/html", body(report))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send run report for %s to %s: %w", report.RunID, toEmail, err)
	}
	return nil
}

func subject(r RunReport) string {
	return fmt.Sprintf("Review run %s %s", shortID(r.RunID), strings.ToLower(r.Status))
}

func body(r RunReport) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">`)
	fmt.Fprintf(&b, "<h2>Review run %s</h2>", html.EscapeString(r.RunID))
	fmt.Fprintf(&b, "<p>Status: <strong>%s</strong></p>", html.EscapeString(r.Status))
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Review cycles: %d</li>", r.ReviewCycles)
	fmt.Fprintf(&b, "<li>Open issues: %d</li>", r.OpenIssues)
	fmt.Fprintf(&b, "<li>Files written: %d</li>", r.WrittenFiles)
	b.WriteString("</ul>")
	if r.Error != "" {
		fmt.Fprintf(&b, `<p style="color: #c62828;">%s</p>`, html.EscapeString(r.Error))
	}
	if r.Hint != "" {
		fmt.Fprintf(&b, "<p>Hint: %s</p>", html.EscapeString(r.Hint))
	}
	b.WriteString("</div>")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
