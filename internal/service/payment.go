package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

// ErrPaymentsDisabled is returned when the payments feature flag is off.
var ErrPaymentsDisabled = errors.New("payments disabled")

// PaymentService handles payment submission and review.
type PaymentService struct {
	payments   PaymentStore
	users      UserStore
	referrals  ReferralStore
	settings   SettingsStore
	tx         TxManager
	fee        int64
	commission int64
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(payments PaymentStore, users UserStore, referrals ReferralStore, settings SettingsStore, tx TxManager, fee, commission int64) *PaymentService {
	return &PaymentService{
		payments:   payments,
		users:      users,
		referrals:  referrals,
		settings:   settings,
		tx:         tx,
		fee:        fee,
		commission: commission,
	}
}

// ApprovalResult carries everything the caller needs to notify the
// parties after a payment approval. Referrer is nil when the payer had
// no pending inbound referral edge.
type ApprovalResult struct {
	Payment  *model.Payment
	Payer    *model.User
	Referrer *model.User
}

// Submit records a pending payment for a screenshot the user sent.
// The amount is the program's flat fee; the screenshot is human-verified
// proof, not machine-validated.
func (s *PaymentService) Submit(ctx context.Context, userID int64, screenshotFileID string) (*model.Payment, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.PaymentsEnabled {
		return nil, ErrPaymentsDisabled
	}

	payment, err := s.payments.Create(ctx, userID, screenshotFileID, s.fee)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("payment_id", payment.ID).
		Int64("user_id", userID).
		Int64("amount", payment.Amount).
		Msg("Payment submitted")

	return payment, nil
}

// Approve settles a pending payment. The payer is activated, their
// pending inbound referral edge (if any) flips to paid, and the
// referrer is credited with the commission. The whole sequence runs in
// one transaction, and the pending-only guard in the store makes a
// repeated approval fail with repository.ErrAlreadyProcessed instead of
// double-crediting.
func (s *PaymentService) Approve(ctx context.Context, paymentID, adminID int64) (*ApprovalResult, error) {
	var result *ApprovalResult
	var referrerID int64

	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		payment, err := s.payments.Approve(ctx, paymentID, adminID)
		if err != nil {
			return err
		}

		payer, err := s.users.SetStatus(ctx, payment.UserID, model.UserStatusActive)
		if err != nil {
			return fmt.Errorf("failed to activate payer: %w", err)
		}

		result = &ApprovalResult{Payment: payment, Payer: payer}

		referrerID, err = s.referrals.MarkPaid(ctx, payment.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNoPendingReferral) {
				// Self-registered payer: nothing to credit.
				referrerID = 0
				return nil
			}
			return err
		}

		referrer, err := s.users.CreditCommission(ctx, referrerID, s.commission)
		if err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}
		result.Referrer = referrer

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("payment_id", paymentID).
		Int64("admin_id", adminID).
		Int64("payer_id", result.Payer.TelegramID).
		Int64("referrer_id", referrerID).
		Int64("commission", s.commission).
		Msg("Payment approved")

	return result, nil
}

// Reject settles a pending payment as rejected with the admin's reason.
func (s *PaymentService) Reject(ctx context.Context, paymentID, adminID int64, reason string) (*model.Payment, error) {
	payment, err := s.payments.Reject(ctx, paymentID, adminID, reason)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("payment_id", paymentID).
		Int64("admin_id", adminID).
		Str("reason", reason).
		Msg("Payment rejected")

	return payment, nil
}

// Fee returns the flat registration fee.
func (s *PaymentService) Fee() int64 {
	return s.fee
}
