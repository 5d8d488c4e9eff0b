package notifications

import (
	"bytes"
	"fmt"
	"os/exec"
)

// SendmailSender pipes messages to a local sendmail-compatible command,
// which reads the recipient from the message headers (-t).
type SendmailSender struct {
	command string
	from    string
}

func NewSendmailSender(command, from string) *SendmailSender {
	return &SendmailSender{command: command, from: from}
}

func (s *SendmailSender) Send(recipient, subject, body string) error {
	msg := buildMessage(s.from, recipient, subject, body)

	cmd := exec.Command(s.command, "-t")
	cmd.Stdin = bytes.NewReader(msg)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w (%s)", s.command, err, bytes.TrimSpace(out))
	}
	return nil
}
