package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/model"
)

// Withdrawal validation errors.
var (
	ErrWithdrawalsDisabled = errors.New("withdrawals disabled")
	ErrMalformedRequest    = errors.New("malformed withdrawal request")
)

// ReferralShortfallError reports an eligibility failure on the paid
// referral count.
type ReferralShortfallError struct {
	Have, Need int
}

func (e *ReferralShortfallError) Error() string {
	return fmt.Sprintf("need %d paid referrals, have %d", e.Need, e.Have)
}

// BalanceShortfallError reports an eligibility failure on the balance.
type BalanceShortfallError struct {
	Have, Need int64
}

func (e *BalanceShortfallError) Error() string {
	return fmt.Sprintf("need balance of %d, have %d", e.Need, e.Have)
}

// AmountError reports an unparseable or out-of-range requested amount.
type AmountError struct {
	Min int64
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("amount must be a number of at least %d", e.Min)
}

// InsufficientBalanceError reports a requested amount above the balance.
type InsufficientBalanceError struct {
	Requested, Balance int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("requested %d exceeds balance %d", e.Requested, e.Balance)
}

// UnknownMethodError reports a method that matches no active payment
// method.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown payment method %q", e.Method)
}

// Request is a parsed amount|method|account withdrawal request.
type Request struct {
	Amount  int64
	Method  string
	Account string
}

// WithdrawalService handles withdrawal eligibility, intake and review.
type WithdrawalService struct {
	withdrawals  WithdrawalStore
	users        UserStore
	settings     SettingsStore
	tx           TxManager
	minReferrals int
	minAmount    int64
}

// NewWithdrawalService creates a new WithdrawalService instance.
func NewWithdrawalService(withdrawals WithdrawalStore, users UserStore, settings SettingsStore, tx TxManager, minReferrals int, minAmount int64) *WithdrawalService {
	return &WithdrawalService{
		withdrawals:  withdrawals,
		users:        users,
		settings:     settings,
		tx:           tx,
		minReferrals: minReferrals,
		minAmount:    minAmount,
	}
}

// CheckEligibility gates the withdrawal flow. The referral threshold is
// checked before the balance so the user learns the more fundamental
// shortfall first.
func (s *WithdrawalService) CheckEligibility(ctx context.Context, user *model.User) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.WithdrawalsEnabled {
		return ErrWithdrawalsDisabled
	}

	if user.PaidReferrals < s.minReferrals {
		return &ReferralShortfallError{Have: user.PaidReferrals, Need: s.minReferrals}
	}
	if user.Balance < s.minAmount {
		return &BalanceShortfallError{Have: user.Balance, Need: s.minAmount}
	}
	return nil
}

// ParseRequest parses the pipe-delimited amount|method|account form.
// Field presence is checked before the amount so the user sees one
// specific error at a time.
func (s *WithdrawalService) ParseRequest(text string) (*Request, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return nil, ErrMalformedRequest
	}

	amountStr := strings.TrimSpace(parts[0])
	method := strings.TrimSpace(parts[1])
	account := strings.TrimSpace(parts[2])
	if amountStr == "" || method == "" || account == "" {
		return nil, ErrMalformedRequest
	}

	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil || amount < s.minAmount {
		return nil, &AmountError{Min: s.minAmount}
	}

	return &Request{Amount: amount, Method: method, Account: account}, nil
}

// Submit validates a parsed-able request against the user's balance and
// the configured payment methods, then records the pending withdrawal.
// Validation order: fields, amount floor, balance ceiling, method.
func (s *WithdrawalService) Submit(ctx context.Context, user *model.User, text string) (*model.Withdrawal, *model.PaymentMethod, error) {
	req, err := s.ParseRequest(text)
	if err != nil {
		return nil, nil, err
	}

	if req.Amount > user.Balance {
		return nil, nil, &InsufficientBalanceError{Requested: req.Amount, Balance: user.Balance}
	}

	method, err := s.settings.GetActiveMethod(ctx, req.Method)
	if err != nil {
		return nil, nil, &UnknownMethodError{Method: req.Method}
	}

	withdrawal, err := s.withdrawals.Create(ctx, user.TelegramID, req.Amount, method.Name, req.Account)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int64("withdrawal_id", withdrawal.ID).
		Int64("user_id", user.TelegramID).
		Int64("amount", req.Amount).
		Str("method", method.Name).
		Msg("Withdrawal requested")

	return withdrawal, method, nil
}

// ReviewResult carries the settled withdrawal and its owner.
type ReviewResult struct {
	Withdrawal *model.Withdrawal
	User       *model.User
}

// Approve settles a pending withdrawal in one transaction: the one-shot
// transition guard runs first, then the amount moves from balance to
// withdrawn total. A failed debit rolls the status flip back, so the
// request stays pending and reviewable.
func (s *WithdrawalService) Approve(ctx context.Context, withdrawalID, adminID int64) (*ReviewResult, error) {
	var withdrawal *model.Withdrawal
	var user *model.User

	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		withdrawal, err = s.withdrawals.Approve(ctx, withdrawalID, adminID)
		if err != nil {
			return err
		}

		user, err = s.users.ApplyWithdrawal(ctx, withdrawal.UserID, withdrawal.Amount)
		if err != nil {
			return fmt.Errorf("failed to debit user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("withdrawal_id", withdrawalID).
		Int64("admin_id", adminID).
		Int64("user_id", user.TelegramID).
		Int64("amount", withdrawal.Amount).
		Msg("Withdrawal approved")

	return &ReviewResult{Withdrawal: withdrawal, User: user}, nil
}

// Reject settles a pending withdrawal as rejected; the balance is
// untouched.
func (s *WithdrawalService) Reject(ctx context.Context, withdrawalID, adminID int64, reason string) (*ReviewResult, error) {
	withdrawal, err := s.withdrawals.Reject(ctx, withdrawalID, adminID, reason)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, withdrawal.UserID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("withdrawal_id", withdrawalID).
		Int64("admin_id", adminID).
		Str("reason", reason).
		Msg("Withdrawal rejected")

	return &ReviewResult{Withdrawal: withdrawal, User: user}, nil
}

// MinReferrals returns the paid referral eligibility threshold.
func (s *WithdrawalService) MinReferrals() int { return s.minReferrals }

// MinAmount returns the minimum withdrawal amount.
func (s *WithdrawalService) MinAmount() int64 { return s.minAmount }
