// Package bot provides the Telegram bot initialization, middleware and
// handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/handler"
	"telegram-referral-bot/internal/notify"
	"telegram-referral-bot/internal/pkg/session"
	"telegram-referral-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	notifier *notify.Notifier
	sessions *session.Store

	accountHandler    *handler.AccountHandler
	paymentHandler    *handler.PaymentHandler
	withdrawalHandler *handler.WithdrawalHandler
	adminHandler      *handler.AdminHandler
	reviewHandler     *handler.ReviewHandler
	textHandler       *handler.TextHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config            *config.Config
	AccountService    *service.AccountService
	PaymentService    *service.PaymentService
	WithdrawalService *service.WithdrawalService
	RankingService    *service.RankingService
	AdminService      *service.AdminService
	Sessions          *session.Store
}

// New creates a new Bot instance with the given dependencies.
// With bot.webhook_url set the bot serves a webhook on bot.listen;
// otherwise it long-polls.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: buildPoller(deps.Config),
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	notifier := notify.New(teleBot, deps.Config.Admin.IDs)

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		notifier: notifier,
		sessions: deps.Sessions,
	}

	b.accountHandler = handler.NewAccountHandler(deps.Config, deps.AccountService, deps.RankingService)
	b.paymentHandler = handler.NewPaymentHandler(deps.Config, deps.PaymentService, deps.AccountService, notifier)
	b.withdrawalHandler = handler.NewWithdrawalHandler(deps.Config, deps.WithdrawalService, deps.AccountService, deps.Sessions)
	b.adminHandler = handler.NewAdminHandler(deps.Config, deps.AdminService, notifier)
	b.reviewHandler = handler.NewReviewHandler(deps.Config, deps.PaymentService, deps.WithdrawalService, deps.AdminService, notifier, deps.Sessions)
	b.textHandler = handler.NewTextHandler(deps.Config, deps.Sessions, deps.AccountService, deps.PaymentService, deps.WithdrawalService, notifier, b.accountHandler, b.withdrawalHandler)

	b.registerMiddleware(deps.AccountService)
	b.registerHandlers()

	return b, nil
}

// buildPoller picks the transport from configuration.
func buildPoller(cfg *config.Config) tele.Poller {
	if cfg.Bot.WebhookURL == "" {
		return &tele.LongPoller{Timeout: 10 * time.Second}
	}
	return &tele.Webhook{
		Listen: cfg.Bot.Listen,
		Endpoint: &tele.WebhookEndpoint{
			PublicURL: cfg.Bot.WebhookURL,
		},
	}
}

// registerMiddleware registers the global middleware chain.
func (b *Bot) registerMiddleware(accounts *service.AccountService) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(MaintenanceMiddleware(b.cfg, accounts))
}

// registerHandlers registers all command, media and callback handlers.
func (b *Bot) registerHandlers() {
	// User commands
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/menu", b.accountHandler.HandleMenu)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/referrals", b.accountHandler.HandleReferrals)
	b.bot.Handle("/leaderboard", b.accountHandler.HandleLeaderboard)
	b.bot.Handle("/withdraw", b.withdrawalHandler.HandleWithdraw)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)

	// Media and free text
	b.bot.Handle(tele.OnPhoto, b.paymentHandler.HandlePhoto)
	b.bot.Handle(tele.OnContact, b.accountHandler.HandleContact)
	b.bot.Handle(tele.OnText, b.textHandler.HandleText)

	// Admin commands
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin", b.adminHandler.HandleDashboard)
	adminGroup.Handle("/stats", b.adminHandler.HandleStats)
	adminGroup.Handle("/user", b.adminHandler.HandleUser)
	adminGroup.Handle("/block", b.adminHandler.HandleBlock)
	adminGroup.Handle("/unblock", b.adminHandler.HandleUnblock)
	adminGroup.Handle("/adjust", b.adminHandler.HandleAdjust)
	adminGroup.Handle("/methods", b.adminHandler.HandleMethods)
	adminGroup.Handle("/payments", b.adminHandler.HandlePayments)
	adminGroup.Handle("/withdrawals", b.adminHandler.HandleWithdrawals)
	adminGroup.Handle("/export_users", b.adminHandler.HandleExportUsers)
	adminGroup.Handle("/broadcast", b.adminHandler.HandleBroadcast)
	adminGroup.Handle("/registered", b.adminHandler.HandleRegistered)
	adminGroup.Handle("/users", b.adminHandler.HandleUsers)

	// Inline buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback decodes callback data and routes it. Every defined
// action is admin-only; the decode rejects malformed ids before any
// state is touched.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	action := handler.ParseAction(callback.Data)
	if action.Kind == handler.ActionUnknown {
		log.Debug().Str("data", callback.Data).Msg("Unknown callback")
		return c.Respond()
	}

	sender := c.Sender()
	if sender == nil || !b.cfg.IsAdmin(sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Admins only"})
	}

	switch action.Kind {
	case handler.ActionAdminPendingPayments,
		handler.ActionAdminPendingWithdrawals,
		handler.ActionAdminStats,
		handler.ActionAdminExport,
		handler.ActionAdminMaintenance,
		handler.ActionAdminToggleFeature:
		return b.adminHandler.HandlePanelAction(c, action)
	}
	return b.reviewHandler.HandleAction(c, action)
}

// Start starts the bot transport loop.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
