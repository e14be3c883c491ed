package handler

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/notify"
	"telegram-referral-bot/internal/pkg/session"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

// TextHandler dispatches free-text messages: an active session state
// consumes the text, otherwise reply-keyboard labels route to their
// command handlers and anything else is ignored.
type TextHandler struct {
	cfg         *config.Config
	sessions    *session.Store
	accounts    *service.AccountService
	payments    *service.PaymentService
	withdrawals *service.WithdrawalService
	notifier    *notify.Notifier

	account    *AccountHandler
	withdrawal *WithdrawalHandler
}

// NewTextHandler creates a new TextHandler.
func NewTextHandler(cfg *config.Config, sessions *session.Store, accounts *service.AccountService, payments *service.PaymentService, withdrawals *service.WithdrawalService, notifier *notify.Notifier, account *AccountHandler, withdrawal *WithdrawalHandler) *TextHandler {
	return &TextHandler{
		cfg:         cfg,
		sessions:    sessions,
		accounts:    accounts,
		payments:    payments,
		withdrawals: withdrawals,
		notifier:    notifier,
		account:     account,
		withdrawal:  withdrawal,
	}
}

// HandleText is the OnText entry point.
func (h *TextHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	state := h.sessions.Get(sender.ID)
	switch state.Kind {
	case session.KindWithdrawalDetails:
		return h.completeWithdrawal(c)
	case session.KindRejectionReason:
		return h.completeRejection(c, state)
	case session.KindAdminMessage:
		return h.completeAdminMessage(c, state)
	}

	switch c.Text() {
	case MenuBalance:
		return h.account.HandleBalance(c)
	case MenuReferrals:
		return h.account.HandleReferrals(c)
	case MenuLeaderboard:
		return h.account.HandleLeaderboard(c)
	case MenuWithdraw:
		return h.withdrawal.HandleWithdraw(c)
	case MenuHelp:
		return h.account.HandleHelp(c)
	}

	return nil
}

// completeWithdrawal runs step two of the withdrawal flow. A validation
// failure keeps the state so the user can resend a corrected request.
func (h *TextHandler) completeWithdrawal(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()

	user, err := h.accounts.Get(ctx, sender.ID)
	if err != nil {
		h.sessions.Clear(sender.ID)
		return c.Reply("❌ Something went wrong. Please try again with /withdraw.")
	}

	withdrawal, method, err := h.withdrawals.Submit(ctx, user, c.Text())
	if err != nil {
		if msg := withdrawalInputMessage(err, h.withdrawals.MinAmount(), h.cfg.Program.Currency); msg != "" {
			return c.Reply(msg + "\n\nSend a corrected request or /start to cancel.")
		}
		h.sessions.Clear(sender.ID)
		return c.Reply("❌ Failed to record your withdrawal. Please try again with /withdraw.")
	}

	h.sessions.Clear(sender.ID)

	h.notifier.NotifyAdmins(
		FormatWithdrawalSummary(withdrawal, user, h.cfg.Program.Currency),
		WithdrawalReviewMarkup(withdrawal.ID),
	)

	return c.Reply(fmt.Sprintf(
		"✅ Withdrawal request received!\n\n💵 %d %s via %s to %s\n\nAn admin will process it shortly.",
		withdrawal.Amount, h.cfg.Program.Currency, method.DisplayName, withdrawal.AccountNumber,
	))
}

// withdrawalInputMessage maps a step-two validation error to its
// corrective text, or "" for non-validation failures.
func withdrawalInputMessage(err error, minAmount int64, currency string) string {
	if errors.Is(err, service.ErrMalformedRequest) {
		return "⚠️ Wrong format. Send exactly: amount|method|account"
	}

	var amountErr *service.AmountError
	if errors.As(err, &amountErr) {
		return fmt.Sprintf("⚠️ The amount must be a number of at least %d %s.", amountErr.Min, currency)
	}

	var balErr *service.InsufficientBalanceError
	if errors.As(err, &balErr) {
		return fmt.Sprintf("⚠️ You asked for %d but your balance is %d %s.", balErr.Requested, balErr.Balance, currency)
	}

	var methodErr *service.UnknownMethodError
	if errors.As(err, &methodErr) {
		return fmt.Sprintf("⚠️ %q is not an available payment method.", methodErr.Method)
	}

	return ""
}

// completeRejection consumes the admin's text as the rejection reason
// for the targeted payment or withdrawal and notifies its owner.
func (h *TextHandler) completeRejection(c tele.Context, state session.State) error {
	ctx := context.Background()
	admin := c.Sender()
	reason := c.Text()

	h.sessions.Clear(admin.ID)

	switch state.TargetKind {
	case session.TargetPayment:
		payment, err := h.payments.Reject(ctx, state.TargetID, admin.ID, reason)
		if err != nil {
			return c.Reply(reviewErrorMessage(err))
		}
		_ = h.notifier.SendTo(payment.UserID, fmt.Sprintf(
			"❌ Your payment was rejected.\n\nReason: %s\n\nYou can submit a new screenshot.", reason))
		return c.Reply(fmt.Sprintf("❌ Payment #%d rejected.", state.TargetID))

	case session.TargetWithdrawal:
		result, err := h.withdrawals.Reject(ctx, state.TargetID, admin.ID, reason)
		if err != nil {
			return c.Reply(reviewErrorMessage(err))
		}
		_ = h.notifier.SendTo(result.Withdrawal.UserID, fmt.Sprintf(
			"❌ Your withdrawal of %d %s was rejected.\n\nReason: %s\n\nYour balance is unchanged.",
			result.Withdrawal.Amount, h.cfg.Program.Currency, reason))
		return c.Reply(fmt.Sprintf("❌ Withdrawal #%d rejected.", state.TargetID))
	}

	return c.Reply("❌ Stale rejection state, nothing done.")
}

// completeAdminMessage relays the admin's text to the targeted user.
func (h *TextHandler) completeAdminMessage(c tele.Context, state session.State) error {
	admin := c.Sender()
	h.sessions.Clear(admin.ID)

	err := h.notifier.SendTo(state.TargetUserID, "📨 Message from the team:\n\n"+c.Text())
	if err != nil {
		return c.Reply(fmt.Sprintf("❌ Could not deliver the message to user %d.", state.TargetUserID))
	}
	return c.Reply(fmt.Sprintf("✅ Message delivered to user %d.", state.TargetUserID))
}

func reviewErrorMessage(err error) string {
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		return "❌ That item was already processed."
	}
	return "❌ Operation failed."
}
