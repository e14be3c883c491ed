// Package service provides business logic implementations.
//
// Services depend on narrow store interfaces rather than concrete
// repositories so tests can substitute deterministic in-memory fakes.
package service

import (
	"context"

	"telegram-referral-bot/internal/model"
)

// UserStore is the user persistence capability set used by services.
type UserStore interface {
	Create(ctx context.Context, telegramID int64, username, firstName, lastName, referralCode string) (*model.User, error)
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByReferralCode(ctx context.Context, code string) (*model.User, error)
	Touch(ctx context.Context, telegramID int64, username string) error
	SetPhone(ctx context.Context, telegramID int64, phone string) error
	SetStatus(ctx context.Context, telegramID int64, status string) (*model.User, error)
	AddReferral(ctx context.Context, referrerID int64) error
	CreditCommission(ctx context.Context, telegramID int64, commission int64) (*model.User, error)
	ApplyWithdrawal(ctx context.Context, telegramID int64, amount int64) (*model.User, error)
	AdjustBalance(ctx context.Context, telegramID int64, delta int64) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	ListByStatus(ctx context.Context, status string) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]*model.User, error)
	Rank(ctx context.Context, telegramID int64) (int, error)
}

// PaymentStore is the payment persistence capability set.
type PaymentStore interface {
	Create(ctx context.Context, userID int64, screenshotFileID string, amount int64) (*model.Payment, error)
	Approve(ctx context.Context, id, adminID int64) (*model.Payment, error)
	Reject(ctx context.Context, id, adminID int64, reason string) (*model.Payment, error)
	ListPending(ctx context.Context) ([]*model.Payment, error)
	Count(ctx context.Context) (int64, error)
	CountPending(ctx context.Context) (int64, error)
	SumApproved(ctx context.Context) (int64, error)
}

// WithdrawalStore is the withdrawal persistence capability set.
type WithdrawalStore interface {
	Create(ctx context.Context, userID, amount int64, method, accountNumber string) (*model.Withdrawal, error)
	Approve(ctx context.Context, id, adminID int64) (*model.Withdrawal, error)
	Reject(ctx context.Context, id, adminID int64, reason string) (*model.Withdrawal, error)
	ListPending(ctx context.Context) ([]*model.Withdrawal, error)
	CountPending(ctx context.Context) (int64, error)
}

// ReferralStore is the referral edge persistence capability set.
type ReferralStore interface {
	Create(ctx context.Context, referrerID, referredID int64) (bool, error)
	MarkPaid(ctx context.Context, referredID int64) (int64, error)
	ListByReferrer(ctx context.Context, referrerID int64) ([]*model.ReferralEntry, error)
}

// SettingsStore is the bot settings persistence capability set.
type SettingsStore interface {
	Get(ctx context.Context) (*model.BotSettings, error)
	Save(ctx context.Context, s *model.BotSettings) error
	ListMethods(ctx context.Context, activeOnly bool) ([]*model.PaymentMethod, error)
	GetActiveMethod(ctx context.Context, name string) (*model.PaymentMethod, error)
	SaveMethod(ctx context.Context, m *model.PaymentMethod) error
}

// TxManager runs a function inside one database transaction, committing
// when it returns nil and rolling back otherwise.
type TxManager interface {
	Begin(ctx context.Context, fn func(ctx context.Context) error) error
}
