package notifications

// Sender delivers one subject/body message to a single recipient. The
// orchestrator loops over the configured recipient list.
type Sender interface {
	Send(recipient, subject, body string) error
}
