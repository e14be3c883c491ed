package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-referral-bot/internal/model"
)

// ErrMethodNotFound is returned when no active payment method matches.
var ErrMethodNotFound = errors.New("payment method not found")

// SettingsRepository handles the bot settings row and payment methods.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get retrieves the singleton settings row.
func (r *SettingsRepository) Get(ctx context.Context) (*model.BotSettings, error) {
	const query = `
		SELECT status, maintenance_message,
		       registration_enabled, payments_enabled, withdrawals_enabled, leaderboard_enabled
		FROM bot_settings
		WHERE id = 1
	`

	var s model.BotSettings
	err := conn(ctx, r.pool).QueryRow(ctx, query).Scan(
		&s.Status,
		&s.MaintenanceMessage,
		&s.RegistrationEnabled,
		&s.PaymentsEnabled,
		&s.WithdrawalsEnabled,
		&s.LeaderboardEnabled,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &s, nil
}

// Save writes the singleton settings row.
func (r *SettingsRepository) Save(ctx context.Context, s *model.BotSettings) error {
	const query = `
		UPDATE bot_settings
		SET status = $1, maintenance_message = $2,
		    registration_enabled = $3, payments_enabled = $4,
		    withdrawals_enabled = $5, leaderboard_enabled = $6
		WHERE id = 1
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		s.Status,
		s.MaintenanceMessage,
		s.RegistrationEnabled,
		s.PaymentsEnabled,
		s.WithdrawalsEnabled,
		s.LeaderboardEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// ListMethods retrieves payment methods, optionally only active ones.
func (r *SettingsRepository) ListMethods(ctx context.Context, activeOnly bool) ([]*model.PaymentMethod, error) {
	query := `
		SELECT name, display_name, account_number, active, instructions
		FROM payment_methods
	`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*model.PaymentMethod
	for rows.Next() {
		var m model.PaymentMethod
		err := rows.Scan(&m.Name, &m.DisplayName, &m.AccountNumber, &m.Active, &m.Instructions)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}

	return methods, nil
}

// GetActiveMethod retrieves an active payment method by name,
// case-insensitively. Returns ErrMethodNotFound when no active method
// matches.
func (r *SettingsRepository) GetActiveMethod(ctx context.Context, name string) (*model.PaymentMethod, error) {
	const query = `
		SELECT name, display_name, account_number, active, instructions
		FROM payment_methods
		WHERE name = $1 AND active
	`

	var m model.PaymentMethod
	err := conn(ctx, r.pool).QueryRow(ctx, query, strings.ToLower(name)).Scan(
		&m.Name, &m.DisplayName, &m.AccountNumber, &m.Active, &m.Instructions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	return &m, nil
}

// SaveMethod inserts or updates a payment method.
func (r *SettingsRepository) SaveMethod(ctx context.Context, m *model.PaymentMethod) error {
	const query = `
		INSERT INTO payment_methods (name, display_name, account_number, active, instructions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    account_number = EXCLUDED.account_number,
		    active = EXCLUDED.active,
		    instructions = EXCLUDED.instructions
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query, strings.ToLower(m.Name), m.DisplayName, m.AccountNumber, m.Active, m.Instructions)
	if err != nil {
		return fmt.Errorf("failed to save payment method: %w", err)
	}

	return nil
}
