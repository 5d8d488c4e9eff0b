package notifications

import (
	"strings"
	"testing"
)

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("watcher@example.com", "user@example.com", "Change in movie \"A\" (1)", "body text\nsecond line"))

	header, body, found := strings.Cut(msg, "\r\n\r\n")
	if !found {
		t.Fatal("message has no header/body separator")
	}

	for _, want := range []string{
		"From: watcher@example.com",
		"To: user@example.com",
		`Subject: Change in movie "A" (1)`,
		"Content-Type: text/plain; charset=utf-8",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q:\n%s", want, header)
		}
	}

	if body != "body text\nsecond line" {
		t.Errorf("unexpected body: %q", body)
	}
}
