package handler

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/pkg/session"
	"telegram-referral-bot/internal/service"
)

// WithdrawalHandler handles the first step of the withdrawal flow:
// eligibility check and the details prompt. Step two arrives as free
// text and is completed by the text dispatcher.
type WithdrawalHandler struct {
	cfg         *config.Config
	withdrawals *service.WithdrawalService
	accounts    *service.AccountService
	sessions    *session.Store
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(cfg *config.Config, withdrawals *service.WithdrawalService, accounts *service.AccountService, sessions *session.Store) *WithdrawalHandler {
	return &WithdrawalHandler{
		cfg:         cfg,
		withdrawals: withdrawals,
		accounts:    accounts,
		sessions:    sessions,
	}
}

// HandleWithdraw handles /withdraw and the withdraw menu button.
// On a passed eligibility check the sender enters the awaiting-details
// state; the shortfall messages name the exact gap otherwise.
func (h *WithdrawalHandler) HandleWithdraw(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.accounts.Get(ctx, sender.ID)
	if err != nil {
		return c.Reply("Please send /start first.")
	}

	if err := h.withdrawals.CheckEligibility(ctx, user); err != nil {
		return c.Reply(eligibilityMessage(err))
	}

	if !h.sessions.Begin(sender.ID, session.State{Kind: session.KindWithdrawalDetails}) {
		return c.Reply("⚠️ Finish your current operation first, then try again.")
	}

	methods, err := h.accounts.ActiveMethods(ctx)
	if err != nil {
		h.sessions.Clear(sender.ID)
		return c.Reply("❌ Failed to load payment methods. Please try again later.")
	}

	return c.Reply(FormatWithdrawalForm(h.withdrawals.MinAmount(), h.cfg.Program.Currency, methods))
}

// eligibilityMessage maps a failed eligibility check to the specific
// user-facing shortfall text.
func eligibilityMessage(err error) string {
	var refErr *service.ReferralShortfallError
	if errors.As(err, &refErr) {
		return fmt.Sprintf("🚫 You need %d paid referrals to withdraw. You have %d — keep sharing your link!", refErr.Need, refErr.Have)
	}

	var balErr *service.BalanceShortfallError
	if errors.As(err, &balErr) {
		return fmt.Sprintf("🚫 You need a balance of at least %d to withdraw. Your balance is %d.", balErr.Need, balErr.Have)
	}

	if errors.Is(err, service.ErrWithdrawalsDisabled) {
		return "🚫 Withdrawals are currently paused. Please try again later."
	}

	return "❌ Something went wrong. Please try again later."
}
