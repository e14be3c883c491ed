package handler

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/notify"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

// PaymentHandler handles payment screenshot intake.
type PaymentHandler struct {
	cfg      *config.Config
	payments *service.PaymentService
	accounts *service.AccountService
	notifier *notify.Notifier
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(cfg *config.Config, payments *service.PaymentService, accounts *service.AccountService, notifier *notify.Notifier) *PaymentHandler {
	return &PaymentHandler{
		cfg:      cfg,
		payments: payments,
		accounts: accounts,
		notifier: notifier,
	}
}

// HandlePhoto treats any incoming photo as a payment screenshot:
// records the pending payment, acks the user, and fans the review card
// plus the photo out to every admin. Admin delivery failures are
// logged inside the notifier and never reach the user.
func (h *PaymentHandler) HandlePhoto(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil || msg.Photo == nil {
		return nil
	}

	user, err := h.accounts.Get(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("Please send /start first.")
		}
		return c.Reply("❌ Something went wrong. Please try again later.")
	}
	if user.Status == model.UserStatusBlocked {
		return nil
	}

	payment, err := h.payments.Submit(ctx, sender.ID, msg.Photo.FileID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentsDisabled) {
			return c.Reply("🚫 Payment verification is currently paused. Please try again later.")
		}
		return c.Reply("❌ Failed to record your payment. Please try again later.")
	}

	h.notifier.NotifyAdmins(
		FormatPaymentSummary(payment, user, h.cfg.Program.Currency),
		PaymentReviewMarkup(payment.ID),
	)
	h.notifier.ForwardToAdmins(msg)

	return c.Reply("✅ Screenshot received! An admin will verify your payment shortly.")
}
