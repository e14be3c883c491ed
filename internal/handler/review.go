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

// ReviewHandler handles the admin inline-button actions on payments,
// withdrawals and users.
type ReviewHandler struct {
	cfg         *config.Config
	payments    *service.PaymentService
	withdrawals *service.WithdrawalService
	admin       *service.AdminService
	notifier    *notify.Notifier
	sessions    *session.Store
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(cfg *config.Config, payments *service.PaymentService, withdrawals *service.WithdrawalService, admin *service.AdminService, notifier *notify.Notifier, sessions *session.Store) *ReviewHandler {
	return &ReviewHandler{
		cfg:         cfg,
		payments:    payments,
		withdrawals: withdrawals,
		admin:       admin,
		notifier:    notifier,
		sessions:    sessions,
	}
}

// HandleAction dispatches a decoded review action.
func (h *ReviewHandler) HandleAction(c tele.Context, action Action) error {
	switch action.Kind {
	case ActionApprovePayment:
		return h.approvePayment(c, action.ID)
	case ActionRejectPayment:
		return h.beginRejection(c, action.ID, session.TargetPayment)
	case ActionApproveWithdrawal:
		return h.approveWithdrawal(c, action.ID)
	case ActionRejectWithdrawal:
		return h.beginRejection(c, action.ID, session.TargetWithdrawal)
	case ActionViewUser:
		return h.viewUser(c, action.ID)
	case ActionMessageUser:
		return h.beginAdminMessage(c, action.ID)
	}
	return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
}

// approvePayment settles the payment and notifies the payer and, when
// one exists, the credited referrer.
func (h *ReviewHandler) approvePayment(c tele.Context, paymentID int64) error {
	ctx := context.Background()

	result, err := h.payments.Approve(ctx, paymentID, c.Sender().ID)
	if err != nil {
		return h.respondReviewError(c, err)
	}

	h.markReviewed(c, fmt.Sprintf("✅ Payment #%d approved", paymentID))

	_ = h.notifier.SendTo(result.Payer.TelegramID,
		"🎉 Your payment has been approved! Your account is now active.\n\n"+
			fmt.Sprintf("Share your link and earn %d %s per approved referral:\n%s",
				h.cfg.Program.Commission, h.cfg.Program.Currency,
				h.cfg.Bot.ReferralLink(result.Payer.ReferralCode)))

	if result.Referrer != nil {
		_ = h.notifier.SendTo(result.Referrer.TelegramID,
			fmt.Sprintf("💰 %s's payment was approved — you earned %d %s!\nYour balance is now %d %s.",
				result.Payer.FirstName,
				h.cfg.Program.Commission, h.cfg.Program.Currency,
				result.Referrer.Balance, h.cfg.Program.Currency))
	}

	return c.Respond(&tele.CallbackResponse{Text: "Approved"})
}

// approveWithdrawal settles the withdrawal and echoes the payout
// details back to the owner.
func (h *ReviewHandler) approveWithdrawal(c tele.Context, withdrawalID int64) error {
	ctx := context.Background()

	result, err := h.withdrawals.Approve(ctx, withdrawalID, c.Sender().ID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return c.Respond(&tele.CallbackResponse{Text: "User balance is too low now"})
		}
		return h.respondReviewError(c, err)
	}

	h.markReviewed(c, fmt.Sprintf("✅ Withdrawal #%d approved", withdrawalID))

	w := result.Withdrawal
	_ = h.notifier.SendTo(w.UserID,
		fmt.Sprintf("✅ Your withdrawal of %d %s was approved!\nSent via %s to %s.",
			w.Amount, h.cfg.Program.Currency, w.Method, w.AccountNumber))

	return c.Respond(&tele.CallbackResponse{Text: "Approved"})
}

// beginRejection puts the admin into the awaiting-reason state; the
// next free text from them settles the rejection. A second reject tap
// while a reason is pending is refused.
func (h *ReviewHandler) beginRejection(c tele.Context, targetID int64, kind session.TargetKind) error {
	admin := c.Sender()

	ok := h.sessions.Begin(admin.ID, session.State{
		Kind:       session.KindRejectionReason,
		TargetID:   targetID,
		TargetKind: kind,
	})
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Finish your current input first"})
	}

	if err := c.Send(fmt.Sprintf("✍️ Send the rejection reason for %s #%d:", kind, targetID)); err != nil {
		h.sessions.Clear(admin.ID)
		return err
	}
	return c.Respond()
}

// viewUser sends the admin detail card for a user id.
func (h *ReviewHandler) viewUser(c tele.Context, userID int64) error {
	user, err := h.admin.GetUser(context.Background(), userID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "User not found"})
	}

	if err := c.Send(FormatUserDetail(user, h.cfg.Program.Currency), UserActionsMarkup(user.TelegramID)); err != nil {
		return err
	}
	return c.Respond()
}

// beginAdminMessage puts the admin into the message-relay state.
func (h *ReviewHandler) beginAdminMessage(c tele.Context, userID int64) error {
	admin := c.Sender()

	ok := h.sessions.Begin(admin.ID, session.State{
		Kind:         session.KindAdminMessage,
		TargetUserID: userID,
	})
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Finish your current input first"})
	}

	if err := c.Send(fmt.Sprintf("✍️ Send the message to relay to user %d:", userID)); err != nil {
		h.sessions.Clear(admin.ID)
		return err
	}
	return c.Respond()
}

// markReviewed rewrites the review card so its buttons disappear. The
// card may be a plain photo forward, which cannot take a text edit;
// that failure is ignored.
func (h *ReviewHandler) markReviewed(c tele.Context, note string) {
	callback := c.Callback()
	if callback == nil || callback.Message == nil {
		return
	}
	if text := callback.Message.Text; text != "" {
		_ = c.Edit(text + "\n\n" + note)
	}
}

// respondReviewError maps the one-shot transition failures to callback
// responses.
func (h *ReviewHandler) respondReviewError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyProcessed):
		return c.Respond(&tele.CallbackResponse{Text: "Already processed"})
	case errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrWithdrawalNotFound):
		return c.Respond(&tele.CallbackResponse{Text: "Not found"})
	}
	return c.Respond(&tele.CallbackResponse{Text: "Operation failed"})
}
