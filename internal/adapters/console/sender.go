package console

import (
	"context"

	"airraidengine/internal/infra/pr"
)

// LogSender implements broadcast.Sender by printing the formatted alert to
// the operator console, prefixed with the recipient it would have gone to.
// Stands in for the real delivery transport (Telegram client/bot API),
// which spec.md places out of scope for the core engine (spec.md §1, §6).
type LogSender struct{}

// NewLogSender builds a LogSender.
func NewLogSender() *LogSender { return &LogSender{} }

// Send never fails: it only prints. A real transport adapter would return
// a *broadcast.RecipientError on delivery failure; this one has none.
func (LogSender) Send(_ context.Context, recipientID string, message string) error {
	pr.Printf("-> %s:\n%s\n\n", recipientID, message)
	return nil
}
