package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-referral-bot/internal/model"
)

// ReferralRepository handles referral edge persistence.
type ReferralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository creates a new ReferralRepository instance.
func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

// Create inserts a pending referral edge. The composite primary key
// keeps at most one edge per (referrer, referred) pair; a duplicate
// insert is a no-op and reports created=false.
func (r *ReferralRepository) Create(ctx context.Context, referrerID, referredID int64) (bool, error) {
	const query = `
		INSERT INTO referrals (referrer_id, referred_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (referrer_id, referred_id) DO NOTHING
	`

	result, err := conn(ctx, r.pool).Exec(ctx, query, referrerID, referredID)
	if err != nil {
		return false, fmt.Errorf("failed to create referral: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkPaid flips the referred user's pending inbound edge to paid and
// returns the referrer's id. Returns ErrNoPendingReferral when the user
// has no pending inbound edge (self-registered, or already settled).
func (r *ReferralRepository) MarkPaid(ctx context.Context, referredID int64) (int64, error) {
	const query = `
		UPDATE referrals
		SET status = 'paid'
		WHERE referred_id = $1 AND status = 'pending'
		RETURNING referrer_id
	`

	var referrerID int64
	err := conn(ctx, r.pool).QueryRow(ctx, query, referredID).Scan(&referrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoPendingReferral
		}
		return 0, fmt.Errorf("failed to mark referral paid: %w", err)
	}

	return referrerID, nil
}

// ListByReferrer retrieves a referrer's edges joined with the invited
// users' names, newest first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]*model.ReferralEntry, error) {
	const query = `
		SELECT r.referred_id,
		       COALESCE(NULLIF(u.username, ''), u.first_name) AS name,
		       r.status,
		       r.created_at
		FROM referrals r
		JOIN users u ON u.telegram_id = r.referred_id
		WHERE r.referrer_id = $1
		ORDER BY r.created_at DESC
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var entries []*model.ReferralEntry
	for rows.Next() {
		var entry model.ReferralEntry
		err := rows.Scan(
			&entry.ReferredID,
			&entry.Name,
			&entry.Status,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referrals: %w", err)
	}

	return entries, nil
}
