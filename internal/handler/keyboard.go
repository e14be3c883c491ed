package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/model"
)

// Reply-keyboard menu labels. Text messages matching a label route to
// the same handler as the corresponding command.
const (
	MenuBalance     = "💰 Balance"
	MenuReferrals   = "👥 My Referrals"
	MenuLeaderboard = "🏆 Leaderboard"
	MenuWithdraw    = "💸 Withdraw"
	MenuHelp        = "ℹ️ Help"
)

const separator = "━━━━━━━━━━━━━━━"

// MainMenu builds the persistent reply keyboard shown to every user.
func MainMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Text(MenuBalance), markup.Text(MenuReferrals)),
		markup.Row(markup.Text(MenuLeaderboard), markup.Text(MenuWithdraw)),
		markup.Row(markup.Text(MenuHelp)),
	)
	return markup
}

// PaymentReviewMarkup builds the approve/reject buttons for a payment.
func PaymentReviewMarkup(paymentID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.FormatInt(paymentID, 10)
	markup.Inline(markup.Row(
		markup.Data("✅ Approve", cbApprovePayment+id),
		markup.Data("❌ Reject", cbRejectPayment+id),
	))
	return markup
}

// WithdrawalReviewMarkup builds the approve/reject buttons for a
// withdrawal.
func WithdrawalReviewMarkup(withdrawalID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.FormatInt(withdrawalID, 10)
	markup.Inline(markup.Row(
		markup.Data("✅ Approve", cbApproveWithdrawal+id),
		markup.Data("❌ Reject", cbRejectWithdrawal+id),
	))
	return markup
}

// UserActionsMarkup builds the detail/contact buttons under a user row.
func UserActionsMarkup(userID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.FormatInt(userID, 10)
	markup.Inline(markup.Row(
		markup.Data("👤 View", cbViewUser+id),
		markup.Data("✉️ Message", cbMessageUser+id),
	))
	return markup
}

// AdminPanelMarkup builds the dashboard action buttons.
func AdminPanelMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("📷 Payments", cbAdminPendingPayments),
			markup.Data("💸 Withdrawals", cbAdminPendingWithdrawals),
		),
		markup.Row(
			markup.Data("📊 Stats", cbAdminStats),
			markup.Data("📁 Export CSV", cbAdminExport),
		),
		markup.Row(
			markup.Data("🔧 Maintenance", cbAdminMaintenance),
		),
		markup.Row(
			markup.Data("🔀 Registration", cbAdminToggle+"registration"),
			markup.Data("🔀 Payments", cbAdminToggle+"payments"),
		),
		markup.Row(
			markup.Data("🔀 Withdrawals", cbAdminToggle+"withdrawals"),
			markup.Data("🔀 Leaderboard", cbAdminToggle+"leaderboard"),
		),
	)
	return markup
}

// FormatBalance renders the balance view with level progress.
func FormatBalance(user *model.User, currency string) string {
	level := model.LevelFor(user.PaidReferrals)

	msg := "💰 Your Balance\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("💵 Balance: %d %s\n", user.Balance, currency)
	msg += fmt.Sprintf("📈 Total earned: %d %s\n", user.TotalEarned, currency)
	msg += fmt.Sprintf("📤 Total withdrawn: %d %s\n", user.TotalWithdrawn, currency)
	msg += separator + "\n"
	msg += fmt.Sprintf("🏅 Level %d — %s\n", level.Number, level.Title)
	msg += fmt.Sprintf("✅ Paid referrals: %d\n", user.PaidReferrals)
	msg += fmt.Sprintf("⏳ Unpaid referrals: %d", user.UnpaidReferrals)
	if next := model.NextLevelAt(user.PaidReferrals); next > 0 {
		msg += fmt.Sprintf("\n\n%d more paid referrals to the next level", next-user.PaidReferrals)
	}
	return msg
}

// FormatReferrals renders the referral overview with the shareable link
// and the invited list.
func FormatReferrals(user *model.User, link string, entries []*model.ReferralEntry) string {
	level := model.LevelFor(user.PaidReferrals)

	msg := "👥 Your Referrals\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("🏅 Level %d — %s\n", level.Number, level.Title)
	msg += fmt.Sprintf("📊 Total: %d | Paid: %d | Unpaid: %d\n", user.TotalReferrals, user.PaidReferrals, user.UnpaidReferrals)
	msg += separator + "\n"
	msg += fmt.Sprintf("🔗 Your link:\n%s\n", link)

	if len(entries) == 0 {
		msg += "\nNo one has joined with your link yet. Share it!"
		return msg
	}

	msg += "\nInvited users:\n"
	for _, e := range entries {
		mark := "⏳"
		if e.Status == model.ReferralStatusPaid {
			mark = "✅"
		}
		msg += fmt.Sprintf("%s %s — %s\n", mark, e.Name, e.CreatedAt.Format("2006-01-02"))
	}
	return strings.TrimRight(msg, "\n")
}

// FormatLeaderboard renders the top referrers with the requester's rank.
func FormatLeaderboard(top []*model.User, rank int) string {
	if len(top) == 0 {
		return "🏆 Leaderboard\n\nNo paid referrals yet. Be the first!"
	}

	msg := "🏆 Top Referrers\n"
	msg += separator + "\n"

	medals := []string{"🥇", "🥈", "🥉"}
	for i, u := range top {
		pos := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			pos = medals[i]
		}
		msg += fmt.Sprintf("%s %s: %d paid\n", pos, u.DisplayName(), u.PaidReferrals)
	}
	msg += separator + "\n"

	if rank > 0 {
		msg += fmt.Sprintf("Your rank: #%d", rank)
	} else {
		msg += "Your rank: Not ranked"
	}
	return msg
}

// FormatPaymentSummary renders the admin review card for a payment.
func FormatPaymentSummary(payment *model.Payment, payer *model.User, currency string) string {
	msg := "📷 New Payment Submission\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("👤 %s (ID: %d)\n", payer.DisplayName(), payer.TelegramID)
	msg += fmt.Sprintf("💵 Amount: %d %s\n", payment.Amount, currency)
	msg += fmt.Sprintf("🕐 Submitted: %s\n", payment.SubmittedAt.Format("2006-01-02 15:04"))
	msg += fmt.Sprintf("🧾 Payment #%d", payment.ID)
	return msg
}

// FormatWithdrawalSummary renders the admin review card for a
// withdrawal.
func FormatWithdrawalSummary(w *model.Withdrawal, owner *model.User, currency string) string {
	msg := "💸 New Withdrawal Request\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("👤 %s (ID: %d)\n", owner.DisplayName(), owner.TelegramID)
	msg += fmt.Sprintf("💵 Amount: %d %s\n", w.Amount, currency)
	msg += fmt.Sprintf("🏦 Method: %s\n", w.Method)
	msg += fmt.Sprintf("🔢 Account: %s\n", w.AccountNumber)
	msg += fmt.Sprintf("🧾 Withdrawal #%d", w.ID)
	return msg
}

// FormatStats renders the admin dashboard aggregates.
func FormatStats(stats *model.Stats, currency string) string {
	msg := "📊 Dashboard\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("👥 Users: %d\n", stats.Users)
	msg += fmt.Sprintf("📷 Payments: %d (%d pending)\n", stats.Payments, stats.PendingPayments)
	msg += fmt.Sprintf("💸 Pending withdrawals: %d\n", stats.PendingWithdrawals)
	msg += fmt.Sprintf("💰 Revenue: %d %s", stats.Revenue, currency)
	return msg
}

// FormatUserDetail renders the admin per-user view.
func FormatUserDetail(u *model.User, currency string) string {
	level := model.LevelFor(u.PaidReferrals)

	msg := "👤 User Detail\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("Name: %s\n", u.FullName())
	if u.Username != "" {
		msg += fmt.Sprintf("Username: @%s\n", u.Username)
	}
	msg += fmt.Sprintf("ID: %d\n", u.TelegramID)
	if u.Phone != "" {
		msg += fmt.Sprintf("Phone: %s\n", u.Phone)
	}
	msg += fmt.Sprintf("Status: %s\n", u.Status)
	msg += fmt.Sprintf("Balance: %d %s\n", u.Balance, currency)
	msg += fmt.Sprintf("Referrals: %d paid / %d total\n", u.PaidReferrals, u.TotalReferrals)
	msg += fmt.Sprintf("Level: %d — %s\n", level.Number, level.Title)
	msg += fmt.Sprintf("Code: %s\n", u.ReferralCode)
	msg += fmt.Sprintf("Joined: %s", u.CreatedAt.Format("2006-01-02"))
	return msg
}

// FormatPaymentInstructions renders the pay-to-register prompt shown to
// pending users, listing the active payment channels.
func FormatPaymentInstructions(fee int64, currency string, methods []*model.PaymentMethod) string {
	msg := fmt.Sprintf("💳 To activate your account, pay the %d %s registration fee and send a screenshot of the receipt here.\n", fee, currency)
	msg += separator + "\n"
	for _, m := range methods {
		msg += fmt.Sprintf("🏦 %s: %s\n", m.DisplayName, m.AccountNumber)
		if m.Instructions != "" {
			msg += fmt.Sprintf("   %s\n", m.Instructions)
		}
	}
	msg += separator + "\n"
	msg += "An admin will review your screenshot shortly."
	return msg
}

// FormatWithdrawalForm renders the step-two input prompt.
func FormatWithdrawalForm(minAmount int64, currency string, methods []*model.PaymentMethod) string {
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, m.DisplayName)
	}

	msg := "💸 Withdrawal Request\n"
	msg += separator + "\n"
	msg += "Send your request in this format:\n\n"
	msg += "amount|method|account\n\n"
	msg += "Example: 1000|telebirr|251912345678\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("Minimum amount: %d %s\n", minAmount, currency)
	msg += fmt.Sprintf("Methods: %s", strings.Join(names, ", "))
	return msg
}

// FormatHelp renders the command overview.
func FormatHelp(fee, commission int64, currency string, minReferrals int, minAmount int64) string {
	msg := "ℹ️ How it works\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("1. Pay the %d %s registration fee and send the screenshot here.\n", fee, currency)
	msg += fmt.Sprintf("2. Share your referral link. You earn %d %s for every invited user whose payment is approved.\n", commission, currency)
	msg += fmt.Sprintf("3. Withdraw once you have %d paid referrals and at least %d %s.\n", minReferrals, minAmount, currency)
	msg += separator + "\n"
	msg += "/balance - balance and level\n"
	msg += "/referrals - your link and invited users\n"
	msg += "/leaderboard - top referrers\n"
	msg += "/withdraw - request a payout\n"
	msg += "/help - this message"
	return msg
}
