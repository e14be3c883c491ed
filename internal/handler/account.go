package handler

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

// AccountHandler handles registration and the user-facing display
// commands.
type AccountHandler struct {
	cfg      *config.Config
	accounts *service.AccountService
	ranking  *service.RankingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(cfg *config.Config, accounts *service.AccountService, ranking *service.RankingService) *AccountHandler {
	return &AccountHandler{
		cfg:      cfg,
		accounts: accounts,
		ranking:  ranking,
	}
}

// HandleStart handles /start with an optional referral code payload.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.accounts.Register(ctx, sender.ID, sender.Username, sender.FirstName, sender.LastName, c.Message().Payload)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationDisabled) {
			return c.Reply("🚫 Registration is currently closed. Please check back later.")
		}
		return c.Reply("❌ Something went wrong. Please try again later.")
	}

	if user.Status == model.UserStatusBlocked {
		return c.Reply("🚫 Your account has been blocked. Contact support if you believe this is a mistake.")
	}

	if created {
		msg := fmt.Sprintf("🎉 Welcome, %s!\n\n", user.FirstName)
		msg += fmt.Sprintf("Your referral code is %s.\n", user.ReferralCode)
		msg += fmt.Sprintf("Your link: %s\n\n", h.cfg.Bot.ReferralLink(user.ReferralCode))
		msg += h.paymentInstructions(ctx)
		return c.Reply(msg, MainMenu())
	}

	msg := fmt.Sprintf("👋 Welcome back, %s!", user.FirstName)
	if user.Status == model.UserStatusPending {
		msg += "\n\n" + h.paymentInstructions(ctx)
	}
	return c.Reply(msg, MainMenu())
}

// paymentInstructions builds the pay-to-register prompt. A settings
// read failure degrades to a short generic line rather than failing
// the welcome.
func (h *AccountHandler) paymentInstructions(ctx context.Context) string {
	methods, err := h.accounts.ActiveMethods(ctx)
	if err != nil {
		return fmt.Sprintf("💳 To activate your account, pay the %d %s registration fee and send a screenshot of the receipt here.",
			h.cfg.Program.Fee, h.cfg.Program.Currency)
	}
	return FormatPaymentInstructions(h.cfg.Program.Fee, h.cfg.Program.Currency, methods)
}

// HandleMenu handles /menu: re-shows the reply keyboard.
func (h *AccountHandler) HandleMenu(c tele.Context) error {
	return c.Reply("📋 Main menu:", MainMenu())
}

// HandleBalance handles /balance and the balance menu button.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	user, err := h.requireUser(c)
	if err != nil || user == nil {
		return err
	}
	return c.Reply(FormatBalance(user, h.cfg.Program.Currency))
}

// HandleReferrals handles /referrals and the referrals menu button.
func (h *AccountHandler) HandleReferrals(c tele.Context) error {
	ctx := context.Background()
	user, err := h.requireUser(c)
	if err != nil || user == nil {
		return err
	}

	entries, err := h.accounts.Referrals(ctx, user.TelegramID)
	if err != nil {
		return c.Reply("❌ Failed to load your referrals. Please try again later.")
	}

	link := h.cfg.Bot.ReferralLink(user.ReferralCode)
	return c.Reply(FormatReferrals(user, link, entries))
}

// HandleLeaderboard handles /leaderboard and the leaderboard menu
// button, gated by the leaderboard feature flag.
func (h *AccountHandler) HandleLeaderboard(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	settings, err := h.accounts.Settings(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load the leaderboard. Please try again later.")
	}
	if !settings.LeaderboardEnabled {
		return c.Reply("🚫 The leaderboard is currently disabled.")
	}

	top, err := h.ranking.Leaderboard(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load the leaderboard. Please try again later.")
	}

	rank, err := h.ranking.UserRank(ctx, sender.ID)
	if err != nil {
		rank = 0
	}

	return c.Reply(FormatLeaderboard(top, rank))
}

// HandleHelp handles /help and the help menu button.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(FormatHelp(
		h.cfg.Program.Fee,
		h.cfg.Program.Commission,
		h.cfg.Program.Currency,
		h.cfg.Withdrawal.MinReferrals,
		h.cfg.Withdrawal.MinAmount,
	), MainMenu())
}

// HandleContact stores the phone number a user shares via the contact
// attachment. Contacts forwarded on someone else's behalf are ignored.
func (h *AccountHandler) HandleContact(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil || msg.Contact == nil {
		return nil
	}
	if msg.Contact.UserID != sender.ID {
		return nil
	}

	if err := h.accounts.SetPhone(ctx, sender.ID, msg.Contact.PhoneNumber); err != nil {
		return c.Reply("❌ Failed to save your phone number. Please try again later.")
	}
	return c.Reply("✅ Phone number saved.")
}

// requireUser loads the sender's account, prompting /start for unknown
// identities. A nil user with nil error means the reply was already
// sent.
func (h *AccountHandler) requireUser(c tele.Context) (*model.User, error) {
	sender := c.Sender()
	if sender == nil {
		return nil, nil
	}

	user, err := h.accounts.Get(context.Background(), sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, c.Reply("Please send /start first.")
		}
		return nil, c.Reply("❌ Something went wrong. Please try again later.")
	}
	return user, nil
}
