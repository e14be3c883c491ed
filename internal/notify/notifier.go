// Package notify handles outbound message fan-out to admins and users.
//
// Fan-out is best-effort and sequential: one recipient's failure is
// recorded in the result list and never aborts the rest of the loop or
// the caller's own action. No send is ever retried automatically.
package notify

import (
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// Sender is the subset of the telebot API the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Forward(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
}

// Result is the outcome of one recipient's send.
type Result struct {
	RecipientID int64
	Err         error
}

// BroadcastReport summarizes a bulk send.
type BroadcastReport struct {
	Sent   int
	Failed int
}

// Notifier fans messages out to the configured admin set and to
// individual users.
type Notifier struct {
	bot      Sender
	adminIDs []int64
}

// New creates a Notifier for the given admin set.
func New(bot Sender, adminIDs []int64) *Notifier {
	return &Notifier{bot: bot, adminIDs: adminIDs}
}

// NotifyAdmins sends a message to every configured admin and returns
// the per-recipient results so the caller decides the logging policy.
func (n *Notifier) NotifyAdmins(what interface{}, opts ...interface{}) []Result {
	results := make([]Result, 0, len(n.adminIDs))
	for _, id := range n.adminIDs {
		_, err := n.bot.Send(tele.ChatID(id), what, opts...)
		if err != nil {
			log.Warn().Err(err).Int64("admin_id", id).Msg("Failed to notify admin")
		}
		results = append(results, Result{RecipientID: id, Err: err})
	}
	return results
}

// ForwardToAdmins forwards a message (typically a payment screenshot)
// to every configured admin.
func (n *Notifier) ForwardToAdmins(msg tele.Editable) []Result {
	results := make([]Result, 0, len(n.adminIDs))
	for _, id := range n.adminIDs {
		_, err := n.bot.Forward(tele.ChatID(id), msg)
		if err != nil {
			log.Warn().Err(err).Int64("admin_id", id).Msg("Failed to forward to admin")
		}
		results = append(results, Result{RecipientID: id, Err: err})
	}
	return results
}

// SendTo sends a message to a single user.
func (n *Notifier) SendTo(userID int64, what interface{}, opts ...interface{}) error {
	_, err := n.bot.Send(tele.ChatID(userID), what, opts...)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to send message")
	}
	return err
}

// Broadcast sends a message to every id in order, pausing delay between
// sends to respect transport rate limits. Failures are counted, never
// retried, and never halt the remaining sends.
func (n *Notifier) Broadcast(userIDs []int64, what interface{}, delay time.Duration) BroadcastReport {
	var report BroadcastReport
	for i, id := range userIDs {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if _, err := n.bot.Send(tele.ChatID(id), what); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Broadcast send failed")
			report.Failed++
			continue
		}
		report.Sent++
	}

	log.Info().
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("Broadcast completed")

	return report
}
