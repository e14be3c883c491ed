package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/notify"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

// AdminHandler handles the admin dashboard, user management and bulk
// operations. All of its routes sit behind the admin middleware.
type AdminHandler struct {
	cfg      *config.Config
	admin    *service.AdminService
	notifier *notify.Notifier
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config, admin *service.AdminService, notifier *notify.Notifier) *AdminHandler {
	return &AdminHandler{
		cfg:      cfg,
		admin:    admin,
		notifier: notifier,
	}
}

// HandleDashboard handles /admin: the stats block plus the action
// panel.
func (h *AdminHandler) HandleDashboard(c tele.Context) error {
	stats, err := h.admin.Stats(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load stats.")
	}
	return c.Reply(FormatStats(stats, h.cfg.Program.Currency), AdminPanelMarkup())
}

// HandleStats handles /stats.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	stats, err := h.admin.Stats(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load stats.")
	}
	return c.Reply(FormatStats(stats, h.cfg.Program.Currency))
}

// HandleUser handles /user <id>.
func (h *AdminHandler) HandleUser(c tele.Context) error {
	userID, err := argID(c)
	if err != nil {
		return c.Reply("Usage: /user <telegram_id>")
	}

	user, err := h.admin.GetUser(context.Background(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ No user with that ID.")
		}
		return c.Reply("❌ Failed to load the user.")
	}

	return c.Reply(FormatUserDetail(user, h.cfg.Program.Currency), UserActionsMarkup(user.TelegramID))
}

// HandleBlock handles /block <id>.
func (h *AdminHandler) HandleBlock(c tele.Context) error {
	userID, err := argID(c)
	if err != nil {
		return c.Reply("Usage: /block <telegram_id>")
	}

	user, err := h.admin.Block(context.Background(), c.Sender().ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ No user with that ID.")
		}
		return c.Reply("❌ Failed to block the user.")
	}

	return c.Reply(fmt.Sprintf("🚫 %s (ID: %d) is now blocked.", user.DisplayName(), user.TelegramID))
}

// HandleUnblock handles /unblock <id>.
func (h *AdminHandler) HandleUnblock(c tele.Context) error {
	userID, err := argID(c)
	if err != nil {
		return c.Reply("Usage: /unblock <telegram_id>")
	}

	user, err := h.admin.Unblock(context.Background(), c.Sender().ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ No user with that ID.")
		}
		return c.Reply("❌ Failed to unblock the user.")
	}

	return c.Reply(fmt.Sprintf("✅ %s (ID: %d) is active again.", user.DisplayName(), user.TelegramID))
}

// HandleAdjust handles /adjust <id> <delta>, the manual balance
// correction. The delta is signed; it bypasses the earned/withdrawn
// ledger.
func (h *AdminHandler) HandleAdjust(c tele.Context) error {
	userID, delta, err := adjustArgs(c.Args())
	if err != nil {
		return c.Reply("Usage: /adjust <telegram_id> <delta>")
	}

	user, err := h.admin.AdjustBalance(context.Background(), c.Sender().ID, userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ No user with that ID.")
		}
		return c.Reply("❌ Failed to adjust the balance.")
	}

	return c.Reply(fmt.Sprintf("💰 %s (ID: %d) balance is now %d %s.",
		user.DisplayName(), user.TelegramID, user.Balance, h.cfg.Program.Currency))
}

// HandleMethods handles /methods: with no arguments it lists the payout
// channels, with `<name> on|off` it toggles one.
func (h *AdminHandler) HandleMethods(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		methods, err := h.admin.PaymentMethods(context.Background())
		if err != nil {
			return c.Reply("❌ Failed to load payout methods.")
		}
		return c.Reply(formatMethodList(methods))
	}

	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return c.Reply("Usage: /methods [<name> on|off]")
	}

	method, err := h.admin.SetMethodActive(context.Background(), c.Sender().ID, args[0], args[1] == "on")
	if err != nil {
		if errors.Is(err, repository.ErrMethodNotFound) {
			return c.Reply("❌ No payout method with that name.")
		}
		return c.Reply("❌ Failed to update the payout method.")
	}

	state := "off"
	if method.Active {
		state = "on"
	}
	return c.Reply(fmt.Sprintf("💳 %s is now %s.", method.DisplayName, state))
}

// HandlePayments handles /payments: one review card per pending
// payment so each keeps its own approve/reject buttons.
func (h *AdminHandler) HandlePayments(c tele.Context) error {
	ctx := context.Background()

	pending, err := h.admin.PendingPayments(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load pending payments.")
	}
	if len(pending) == 0 {
		return c.Reply("✅ No pending payments.")
	}

	if err := c.Reply(fmt.Sprintf("📷 %d pending payment(s):", len(pending))); err != nil {
		return err
	}
	for _, p := range pending {
		payer, err := h.admin.GetUser(ctx, p.UserID)
		if err != nil {
			continue
		}
		if err := c.Send(FormatPaymentSummary(p, payer, h.cfg.Program.Currency), PaymentReviewMarkup(p.ID)); err != nil {
			return err
		}
	}
	return nil
}

// HandleWithdrawals handles /withdrawals, the payout review queue.
func (h *AdminHandler) HandleWithdrawals(c tele.Context) error {
	ctx := context.Background()

	pending, err := h.admin.PendingWithdrawals(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load pending withdrawals.")
	}
	if len(pending) == 0 {
		return c.Reply("✅ No pending withdrawals.")
	}

	if err := c.Reply(fmt.Sprintf("💸 %d pending withdrawal(s):", len(pending))); err != nil {
		return err
	}
	for _, w := range pending {
		owner, err := h.admin.GetUser(ctx, w.UserID)
		if err != nil {
			continue
		}
		if err := c.Send(FormatWithdrawalSummary(w, owner, h.cfg.Program.Currency), WithdrawalReviewMarkup(w.ID)); err != nil {
			return err
		}
	}
	return nil
}

// HandleExportUsers handles /export_users: the full user table as a
// CSV document.
func (h *AdminHandler) HandleExportUsers(c tele.Context) error {
	data, err := h.admin.ExportUsersCSV(context.Background())
	if err != nil {
		return c.Reply("❌ Export failed.")
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: fmt.Sprintf("users_%s.csv", time.Now().Format("2006-01-02")),
		MIME:     "text/csv",
	}
	return c.Send(doc)
}

// HandleBroadcast handles /broadcast <text>: a paced sequential send to
// every user, reporting the delivered/failed split.
func (h *AdminHandler) HandleBroadcast(c tele.Context) error {
	text := c.Message().Payload
	if text == "" {
		return c.Reply("Usage: /broadcast <message>")
	}

	users, err := h.admin.ListUsers(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load the user list.")
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		if u.Status == model.UserStatusBlocked {
			continue
		}
		ids = append(ids, u.TelegramID)
	}

	if err := c.Reply(fmt.Sprintf("📣 Broadcasting to %d users...", len(ids))); err != nil {
		return err
	}

	report := h.notifier.Broadcast(ids, text, h.cfg.Broadcast.Delay)
	return c.Send(fmt.Sprintf("📣 Broadcast done: %d delivered, %d failed.", report.Sent, report.Failed))
}

// HandleRegistered handles /registered: users whose payment has been
// approved.
func (h *AdminHandler) HandleRegistered(c tele.Context) error {
	users, err := h.admin.ListRegistered(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load users.")
	}
	return c.Reply(formatUserList("✅ Registered users", users))
}

// HandleUsers handles /users: everyone who has ever started the bot.
func (h *AdminHandler) HandleUsers(c tele.Context) error {
	users, err := h.admin.ListUsers(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load users.")
	}
	return c.Reply(formatUserList("👥 All users", users))
}

// HandlePanelAction routes the admin_* dashboard buttons.
func (h *AdminHandler) HandlePanelAction(c tele.Context, action Action) error {
	switch action.Kind {
	case ActionAdminPendingPayments:
		return respondAfter(c, h.HandlePayments(c))
	case ActionAdminPendingWithdrawals:
		return respondAfter(c, h.HandleWithdrawals(c))
	case ActionAdminStats:
		return respondAfter(c, h.HandleStats(c))
	case ActionAdminExport:
		return respondAfter(c, h.HandleExportUsers(c))
	case ActionAdminMaintenance:
		settings, err := h.admin.ToggleMaintenance(context.Background(), c.Sender().ID)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Toggle failed"})
		}
		return respondAfter(c, c.Send(fmt.Sprintf("🔧 Bot status: %s", settings.Status)))
	case ActionAdminToggleFeature:
		settings, err := h.admin.ToggleFeature(context.Background(), c.Sender().ID, action.Feature)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Unknown feature"})
		}
		return respondAfter(c, c.Send(formatFeatureFlags(settings)))
	}
	return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
}

// respondAfter acks the callback once the action ran, so the button
// spinner clears even when the action itself replied.
func respondAfter(c tele.Context, err error) error {
	if err != nil {
		return err
	}
	return c.Respond()
}

func formatFeatureFlags(s *model.BotSettings) string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	msg := "🔀 Feature flags\n"
	msg += separator + "\n"
	msg += fmt.Sprintf("Registration: %s\n", onOff(s.RegistrationEnabled))
	msg += fmt.Sprintf("Payments: %s\n", onOff(s.PaymentsEnabled))
	msg += fmt.Sprintf("Withdrawals: %s\n", onOff(s.WithdrawalsEnabled))
	msg += fmt.Sprintf("Leaderboard: %s", onOff(s.LeaderboardEnabled))
	return msg
}

func formatUserList(title string, users []*model.User) string {
	if len(users) == 0 {
		return title + ": none."
	}

	msg := fmt.Sprintf("%s (%d)\n", title, len(users))
	msg += separator + "\n"
	for _, u := range users {
		msg += fmt.Sprintf("%s — ID %d, %s\n", u.DisplayName(), u.TelegramID, u.Status)
	}
	return msg
}

func formatMethodList(methods []*model.PaymentMethod) string {
	if len(methods) == 0 {
		return "💳 No payout methods configured."
	}

	msg := "💳 Payout methods\n"
	msg += separator + "\n"
	for _, m := range methods {
		state := "off"
		if m.Active {
			state = "on"
		}
		msg += fmt.Sprintf("%s (%s) — %s\n", m.DisplayName, m.Name, state)
	}
	return msg
}

// argID parses the single numeric argument of a /user-style command.
func argID(c tele.Context) (int64, error) {
	args := c.Args()
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one argument")
	}
	return strconv.ParseInt(args[0], 10, 64)
}

// adjustArgs parses the /adjust argument pair. The id must be positive,
// the delta parses with an optional sign and must be non-zero.
func adjustArgs(args []string) (userID, delta int64, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected two arguments")
	}

	userID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, 0, fmt.Errorf("invalid user id %q", args[0])
	}

	delta, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil || delta == 0 {
		return 0, 0, fmt.Errorf("invalid delta %q", args[1])
	}

	return userID, delta, nil
}
