package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-referral-bot/internal/model"
)

const paymentColumns = `id, user_id, screenshot_file_id, amount, status,
		submitted_at, verified_by, verified_at, rejection_reason`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ScreenshotFileID,
		&p.Amount,
		&p.Status,
		&p.SubmittedAt,
		&p.VerifiedBy,
		&p.VerifiedAt,
		&p.RejectionReason,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentRepository handles payment submission persistence.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository instance.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create records a new pending payment submission.
func (r *PaymentRepository) Create(ctx context.Context, userID int64, screenshotFileID string, amount int64) (*model.Payment, error) {
	const query = `
		INSERT INTO payments (user_id, screenshot_file_id, amount, submitted_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING ` + paymentColumns

	payment, err := scanPayment(conn(ctx, r.pool).QueryRow(ctx, query, userID, screenshotFileID, amount))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	return payment, nil
}

// Approve transitions a payment from pending to approved, recording the
// verifier. The pending guard lives in SQL: a payment that already left
// the pending state yields ErrAlreadyProcessed, never a double credit.
func (r *PaymentRepository) Approve(ctx context.Context, id, adminID int64) (*model.Payment, error) {
	const query = `
		UPDATE payments
		SET status = 'approved', verified_by = $2, verified_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns

	payment, err := scanPayment(conn(ctx, r.pool).QueryRow(ctx, query, id, adminID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.notPending(ctx, id)
		}
		return nil, fmt.Errorf("failed to approve payment: %w", err)
	}

	return payment, nil
}

// Reject transitions a payment from pending to rejected with a reason.
func (r *PaymentRepository) Reject(ctx context.Context, id, adminID int64, reason string) (*model.Payment, error) {
	const query = `
		UPDATE payments
		SET status = 'rejected', verified_by = $2, verified_at = NOW(), rejection_reason = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns

	payment, err := scanPayment(conn(ctx, r.pool).QueryRow(ctx, query, id, adminID, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.notPending(ctx, id)
		}
		return nil, fmt.Errorf("failed to reject payment: %w", err)
	}

	return payment, nil
}

// notPending distinguishes a missing payment from one already processed.
func (r *PaymentRepository) notPending(ctx context.Context, id int64) error {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check payment existence: %w", err)
	}
	if exists {
		return ErrAlreadyProcessed
	}
	return ErrPaymentNotFound
}

// ListPending retrieves pending payments, oldest first.
func (r *PaymentRepository) ListPending(ctx context.Context) ([]*model.Payment, error) {
	const query = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending'
		ORDER BY submitted_at
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// Count returns the total number of payments.
func (r *PaymentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// CountPending returns the number of payments awaiting review.
func (r *PaymentRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending payments: %w", err)
	}
	return count, nil
}

// SumApproved returns the total revenue from approved payments.
func (r *PaymentRepository) SumApproved(ctx context.Context) (int64, error) {
	var sum int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'approved'`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum approved payments: %w", err)
	}
	return sum, nil
}
