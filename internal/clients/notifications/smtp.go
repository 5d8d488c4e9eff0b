package notifications

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPSender submits mail to an SMTP host without authentication, matching
// a local or trusted relay setup.
type SMTPSender struct {
	host string
	port int
	from string
}

func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, from: from}
}

func (s *SMTPSender) Send(recipient, subject, body string) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	msg := buildMessage(s.from, recipient, subject, body)
	if err := smtp.SendMail(addr, nil, s.from, []string{recipient}, msg); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}
	return nil
}

// buildMessage assembles a plain-text RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
