package bot

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/service"
)

// LoggingMiddleware creates a middleware that logs all incoming
// updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics so
// a single broken update never kills the transport loop.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					_ = c.Reply("❌ Something went wrong. Please try again later.")
				}
			}()
			return next(c)
		}
	}
}

// MaintenanceMiddleware blocks non-admin traffic while the bot is in
// maintenance mode. Admins pass through so they can toggle it back. A
// failed settings read fails open rather than locking everyone out.
func MaintenanceMiddleware(cfg *config.Config, accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || cfg.IsAdmin(sender.ID) {
				return next(c)
			}

			settings, err := accounts.Settings(context.Background())
			if err != nil {
				log.Warn().Err(err).Msg("Failed to read settings for maintenance check")
				return next(c)
			}
			if settings.Status != model.BotStatusMaintenance {
				return next(c)
			}

			msg := settings.MaintenanceMessage
			if msg == "" {
				msg = "🔧 The bot is under maintenance. Please try again later."
			}
			return c.Reply(msg)
		}
	}
}

// AdminMiddleware restricts a handler group to configured admins.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Admins only.")
			}

			return next(c)
		}
	}
}
