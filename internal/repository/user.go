// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/pkg/db"
)

// Common errors for repository operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrReferralCodeTaken   = errors.New("referral code already taken")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoPendingReferral   = errors.New("no pending referral")
)

// conn returns the transaction carried by ctx when there is one, so a
// method joins the caller's transaction, and the pool otherwise.
func conn(ctx context.Context, pool *pgxpool.Pool) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

const userColumns = `telegram_id, username, first_name, last_name, phone, status,
		balance, total_earned, total_withdrawn,
		paid_referrals, unpaid_referrals, total_referrals,
		referral_code, created_at, last_seen`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.Status,
		&u.Balance,
		&u.TotalEarned,
		&u.TotalWithdrawn,
		&u.PaidReferrals,
		&u.UnpaidReferrals,
		&u.TotalReferrals,
		&u.ReferralCode,
		&u.CreatedAt,
		&u.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserRepository handles user data persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user with zeroed counters and pending status.
// Returns ErrReferralCodeTaken when the generated referral code collides
// with an existing one, so the caller can regenerate and retry.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username, firstName, lastName, referralCode string) (*model.User, error) {
	const query = `
		INSERT INTO users (telegram_id, username, first_name, last_name, referral_code, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, telegramID, username, firstName, lastName, referralCode))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_referral_code_key" {
			return nil, ErrReferralCodeTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByReferralCode retrieves the user owning a referral code.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}

	return user, nil
}

// Touch refreshes a user's last_seen timestamp and username.
func (r *UserRepository) Touch(ctx context.Context, telegramID int64, username string) error {
	const query = `
		UPDATE users
		SET last_seen = NOW(), username = $2
		WHERE telegram_id = $1
	`

	result, err := conn(ctx, r.pool).Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetPhone stores a user's phone number from a shared contact.
func (r *UserRepository) SetPhone(ctx context.Context, telegramID int64, phone string) error {
	const query = `UPDATE users SET phone = $2 WHERE telegram_id = $1`

	result, err := conn(ctx, r.pool).Exec(ctx, query, telegramID, phone)
	if err != nil {
		return fmt.Errorf("failed to set phone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetStatus updates a user's status. Blocking is a status flip, never a
// row deletion.
func (r *UserRepository) SetStatus(ctx context.Context, telegramID int64, status string) (*model.User, error) {
	const query = `
		UPDATE users
		SET status = $2
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, telegramID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set status: %w", err)
	}

	return user, nil
}

// AddReferral bumps a referrer's total and unpaid counters when someone
// registers through their code.
func (r *UserRepository) AddReferral(ctx context.Context, referrerID int64) error {
	const query = `
		UPDATE users
		SET total_referrals = total_referrals + 1,
		    unpaid_referrals = unpaid_referrals + 1
		WHERE telegram_id = $1
	`

	result, err := conn(ctx, r.pool).Exec(ctx, query, referrerID)
	if err != nil {
		return fmt.Errorf("failed to add referral: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// CreditCommission credits a referrer after one of their referrals'
// payments is approved: one unpaid referral becomes paid (floored at
// zero) and the commission lands on balance and total earnings.
func (r *UserRepository) CreditCommission(ctx context.Context, telegramID int64, commission int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET paid_referrals = paid_referrals + 1,
		    unpaid_referrals = GREATEST(unpaid_referrals - 1, 0),
		    balance = balance + $2,
		    total_earned = total_earned + $2
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, telegramID, commission))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to credit commission: %w", err)
	}

	return user, nil
}

// ApplyWithdrawal debits an approved withdrawal from a user's balance
// and adds it to their withdrawn total. The balance guard is in SQL so a
// stale read can never drive the balance negative.
func (r *UserRepository) ApplyWithdrawal(ctx context.Context, telegramID int64, amount int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET balance = balance - $2,
		    total_withdrawn = total_withdrawn + $2
		WHERE telegram_id = $1 AND balance >= $2
		RETURNING ` + userColumns

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to apply withdrawal: %w", err)
	}

	return user, nil
}

// AdjustBalance changes a user's balance by a signed delta. Admin-only
// override; it intentionally bypasses the earned/withdrawn ledger.
func (r *UserRepository) AdjustBalance(ctx context.Context, telegramID int64, delta int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET balance = balance + $2
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, telegramID, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return user, nil
}

// List retrieves all users ordered by registration date.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	return r.queryUsers(ctx, query)
}

// ListByStatus retrieves users with the given status.
func (r *UserRepository) ListByStatus(ctx context.Context, status string) ([]*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE status = $1 ORDER BY created_at`

	return r.queryUsers(ctx, query, status)
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Leaderboard retrieves the top users by paid referral count. Users with
// no paid referrals are excluded.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE paid_referrals > 0
		ORDER BY paid_referrals DESC, created_at
		LIMIT $1
	`

	return r.queryUsers(ctx, query, limit)
}

// Rank returns a user's 1-based position among users with at least one
// paid referral, or 0 when the user has none.
func (r *UserRepository) Rank(ctx context.Context, telegramID int64) (int, error) {
	const query = `
		SELECT COALESCE((
			SELECT COUNT(*) + 1
			FROM users
			WHERE paid_referrals > (SELECT paid_referrals FROM users WHERE telegram_id = $1)
		), 0)
		FROM users
		WHERE telegram_id = $1 AND paid_referrals > 0
	`

	var rank int
	err := conn(ctx, r.pool).QueryRow(ctx, query, telegramID).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get rank: %w", err)
	}

	return rank, nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
