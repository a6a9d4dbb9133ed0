package connectors

import "orderintake/internal"

// MailConnector fetches raw messages from one mailbox. Implementations are
// one-shot: a single FetchInbox call per invocation, no polling.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
