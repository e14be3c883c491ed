package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-referral-bot/internal/model"
)

const withdrawalColumns = `id, user_id, amount, method, account_number, status,
		requested_at, processed_by, processed_at, rejection_reason`

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&w.Method,
		&w.AccountNumber,
		&w.Status,
		&w.RequestedAt,
		&w.ProcessedBy,
		&w.ProcessedAt,
		&w.RejectionReason,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// WithdrawalRepository handles withdrawal request persistence.
type WithdrawalRepository struct {
	pool *pgxpool.Pool
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{pool: pool}
}

// Create records a new pending withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, userID, amount int64, method, accountNumber string) (*model.Withdrawal, error) {
	const query = `
		INSERT INTO withdrawals (user_id, amount, method, account_number, requested_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + withdrawalColumns

	withdrawal, err := scanWithdrawal(conn(ctx, r.pool).QueryRow(ctx, query, userID, amount, method, accountNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return withdrawal, nil
}

// Approve transitions a withdrawal from pending to approved. The same
// SQL pending guard as payments: re-approving yields ErrAlreadyProcessed
// instead of a double debit.
func (r *WithdrawalRepository) Approve(ctx context.Context, id, adminID int64) (*model.Withdrawal, error) {
	const query = `
		UPDATE withdrawals
		SET status = 'approved', processed_by = $2, processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + withdrawalColumns

	withdrawal, err := scanWithdrawal(conn(ctx, r.pool).QueryRow(ctx, query, id, adminID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.notPending(ctx, id)
		}
		return nil, fmt.Errorf("failed to approve withdrawal: %w", err)
	}

	return withdrawal, nil
}

// Reject transitions a withdrawal from pending to rejected with a reason.
func (r *WithdrawalRepository) Reject(ctx context.Context, id, adminID int64, reason string) (*model.Withdrawal, error) {
	const query = `
		UPDATE withdrawals
		SET status = 'rejected', processed_by = $2, processed_at = NOW(), rejection_reason = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + withdrawalColumns

	withdrawal, err := scanWithdrawal(conn(ctx, r.pool).QueryRow(ctx, query, id, adminID, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.notPending(ctx, id)
		}
		return nil, fmt.Errorf("failed to reject withdrawal: %w", err)
	}

	return withdrawal, nil
}

func (r *WithdrawalRepository) notPending(ctx context.Context, id int64) error {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawals WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check withdrawal existence: %w", err)
	}
	if exists {
		return ErrAlreadyProcessed
	}
	return ErrWithdrawalNotFound
}

// ListPending retrieves pending withdrawals, oldest first.
func (r *WithdrawalRepository) ListPending(ctx context.Context) ([]*model.Withdrawal, error) {
	const query = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = 'pending'
		ORDER BY requested_at
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*model.Withdrawal
	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, withdrawal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawals: %w", err)
	}

	return withdrawals, nil
}

// CountPending returns the number of withdrawals awaiting review.
func (r *WithdrawalRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}
	return count, nil
}
