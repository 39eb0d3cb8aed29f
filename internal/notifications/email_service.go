package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	textTemplate "text/template"
	"time"

	"ticketbooth/internal/shared/config"
	"ticketbooth/pkg/logger"

	"github.com/shopspring/decimal"
)

// mailTransport hands a finished message to the relay
type mailTransport func(ctx context.Context, from string, to []string, message []byte) error

// SMTPTicketSender emails the tickets of a confirmed booking through an SMTP relay
type SMTPTicketSender struct {
	config    config.EmailConfig
	html      *template.Template
	text      *textTemplate.Template
	transport mailTransport
	log       *logger.Logger
}

// ticketEmail is the data rendered into both message bodies
type ticketEmail struct {
	CustomerName     string
	Reference        string
	BookingID        string
	EventID          string
	Total            string
	PaymentReference string
}

const ticketHTML = `<h2>Your tickets are confirmed</h2>
<p>Hi {{.CustomerName}},</p>
<p>Your payment has been verified and booking <strong>{{.Reference}}</strong> is confirmed.</p>
<p>Event: {{.EventID}}<br>Total paid: {{.Total}}<br>Payment reference: {{.PaymentReference}}</p>
<p>Show this booking reference at the entrance.</p>
<p>Ticketbooth</p>
`

const ticketText = `Hi {{.CustomerName}},

Your payment has been verified and booking {{.Reference}} is confirmed.
Event: {{.EventID}}
Total paid: {{.Total}}
Payment reference: {{.PaymentReference}}

Show this booking reference at the entrance.

Ticketbooth
`

func NewSMTPTicketSender(cfg config.EmailConfig, log *logger.Logger) (*SMTPTicketSender, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}

	s := &SMTPTicketSender{
		config: cfg,
		html:   template.Must(template.New("html").Parse(ticketHTML)),
		text:   textTemplate.Must(textTemplate.New("text").Parse(ticketText)),
		log:    logger.OrDefault(log).WithComponent("email"),
	}
	s.transport = s.send
	return s, nil
}

func validateSMTPConfig(cfg config.EmailConfig) error {
	if cfg.SMTPHost == "" {
		return errors.New("SMTP host is required")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return errors.New("SMTP port must be between 1 and 65535")
	}
	if cfg.FromEmail == "" {
		return errors.New("from email is required")
	}
	if (cfg.SMTPUsername == "") != (cfg.SMTPPassword == "") {
		return errors.New("SMTP username and password must be set together")
	}
	return nil
}

func (s *SMTPTicketSender) SendTickets(ctx context.Context, n *BookingNotification) error {
	if n.CustomerEmail == "" {
		return fmt.Errorf("booking %s has no customer email", n.BookingID)
	}

	subject := fmt.Sprintf("Your tickets for booking %s", n.Reference)
	message, err := s.buildMessage(n, subject)
	if err != nil {
		return fmt.Errorf("failed to render ticket email: %w", err)
	}

	if err := s.transport(ctx, s.config.FromEmail, []string{n.CustomerEmail}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.InfoContext(ctx, "Tickets Emailed",
		"booking_id", n.BookingID.String(),
		"reference", n.Reference,
		"customer_email", n.CustomerEmail,
	)
	return nil
}

func (s *SMTPTicketSender) buildMessage(n *BookingNotification, subject string) ([]byte, error) {
	data := ticketEmail{
		CustomerName:     n.CustomerName,
		Reference:        n.Reference,
		BookingID:        n.BookingID.String(),
		EventID:          n.EventID.String(),
		Total:            formatMinorUnits(n.TotalAmount),
		PaymentReference: n.PaymentReference,
	}

	var htmlBody, textBody bytes.Buffer
	if err := s.html.Execute(&htmlBody, data); err != nil {
		return nil, err
	}
	if err := s.text.Execute(&textBody, data); err != nil {
		return nil, err
	}

	boundary := "ticketbooth_" + strconv.FormatInt(time.Now().UnixNano(), 10)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", n.CustomerEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n", boundary)
	b.WriteString(textBody.String())
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n", boundary)
	b.WriteString(htmlBody.String())
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String()), nil
}

func (s *SMTPTicketSender) auth() smtp.Auth {
	if s.config.SMTPUsername == "" {
		return nil
	}
	return smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
}

// send delivers over a fresh connection, upgrading with STARTTLS when UseTLS is set
func (s *SMTPTicketSender) send(ctx context.Context, from string, to []string, message []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.config.SMTPHost, strconv.Itoa(s.config.SMTPPort))
	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if s.config.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.config.SMTPHost}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}

func formatMinorUnits(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
