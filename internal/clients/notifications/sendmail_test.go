package notifications

import "testing"

func TestSendmailSenderSuccess(t *testing.T) {
	s := NewSendmailSender("true", "watcher@example.com")
	if err := s.Send("user@example.com", "subject", "body"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
}

func TestSendmailSenderFailure(t *testing.T) {
	s := NewSendmailSender("false", "watcher@example.com")
	if err := s.Send("user@example.com", "subject", "body"); err == nil {
		t.Fatal("expected error from failing command")
	}
}
