package contact

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
)

// Submission is a sanitized contact form payload, alive only for the
// duration of one request.
type Submission struct {
	Name    string
	Email   string
	Message string
}

// Sender dispatches the two notification emails for a contact submission.
type Sender interface {
	Configured() bool
	SendContactNotification(sub Submission) error
	SendConfirmation(sub Submission) error
}

var _ Sender = (*SMTPSender)(nil)

type SMTPSenderParams struct {
	Host      string
	Port      int
	Username  string // sender credential, also the From address
	Password  string
	Recipient string // fixed admin recipient for contact notifications
	BCC       string // optional blind copy on confirmations
}

// SMTPSender sends mail through an authenticated SMTP relay over STARTTLS.
type SMTPSender struct {
	params SMTPSenderParams
}

func NewSMTPSender(params SMTPSenderParams) *SMTPSender {
	return &SMTPSender{params: params}
}

// Configured reports whether the mail transport configuration is complete.
func (s *SMTPSender) Configured() bool {
	return s.params.Username != "" && s.params.Password != "" && s.params.Recipient != ""
}

// SendContactNotification delivers the sanitized submission to the fixed
// admin recipient.
func (s *SMTPSender) SendContactNotification(sub Submission) error {
	htmlBody := fmt.Sprintf(
		"<p><strong>Name:</strong> %s</p>"+
			"<p><strong>Email:</strong> %s</p>"+
			"<p><strong>Message:</strong></p>"+
			"<p>%s</p>",
		sub.Name, sub.Email, sub.Message,
	)
	return s.send([]string{s.params.Recipient}, s.params.Recipient, "New contact message", htmlBody)
}

// SendConfirmation sends the fixed confirmation template back to the
// submitter, blind-copied to the configured BCC address when set.
func (s *SMTPSender) SendConfirmation(sub Submission) error {
	htmlBody := fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>Thank you for your message! We received it and will get back to you shortly.</p>"+
			"<blockquote>%s</blockquote>"+
			"<p>Best regards,<br><strong>Shoshin Web Services</strong></p>",
		sub.Name, sub.Message,
	)

	rcpts := []string{sub.Email}
	if s.params.BCC != "" {
		// blind copy: an envelope recipient only, never a header
		rcpts = append(rcpts, s.params.BCC)
	}
	return s.send(rcpts, sub.Email, "Confirmation of your message to Shoshin Web Services", htmlBody)
}

func (s *SMTPSender) send(rcpts []string, toHeader, subject, htmlBody string) error {
	from := s.params.Username
	msg := buildMessage(from, toHeader, subject, htmlBody)

	addr := net.JoinHostPort(s.params.Host, strconv.Itoa(s.params.Port))
	auth := smtp.PlainAuth("", s.params.Username, s.params.Password, s.params.Host)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: s.params.Host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}

	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt to: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close message: %w", err)
	}

	return client.Quit()
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}
