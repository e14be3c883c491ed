package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

// csvHeader is the fixed export column set, in order.
var csvHeader = []string{
	"User ID", "Name", "Username", "Phone", "Balance",
	"Paid Referrals", "Total Referrals", "Status", "Registration Date",
}

// AdminService handles dashboard stats and bulk operations.
type AdminService struct {
	users       UserStore
	payments    PaymentStore
	withdrawals WithdrawalStore
	settings    SettingsStore
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(users UserStore, payments PaymentStore, withdrawals WithdrawalStore, settings SettingsStore) *AdminService {
	return &AdminService{
		users:       users,
		payments:    payments,
		withdrawals: withdrawals,
		settings:    settings,
	}
}

// Stats aggregates the dashboard numbers.
func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.Count(ctx)
	if err != nil {
		return nil, err
	}
	pendingPayments, err := s.payments.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	pendingWithdrawals, err := s.withdrawals.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.SumApproved(ctx)
	if err != nil {
		return nil, err
	}

	return &model.Stats{
		Users:              users,
		Payments:           payments,
		PendingPayments:    pendingPayments,
		PendingWithdrawals: pendingWithdrawals,
		Revenue:            revenue,
	}, nil
}

// Block sets a user's status to blocked.
func (s *AdminService) Block(ctx context.Context, adminID, userID int64) (*model.User, error) {
	user, err := s.users.SetStatus(ctx, userID, model.UserStatusBlocked)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Str("operation", "block").
		Msg("Admin operation executed")

	return user, nil
}

// Unblock restores a blocked user to active status.
func (s *AdminService) Unblock(ctx context.Context, adminID, userID int64) (*model.User, error) {
	user, err := s.users.SetStatus(ctx, userID, model.UserStatusActive)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Str("operation", "unblock").
		Msg("Admin operation executed")

	return user, nil
}

// AdjustBalance changes a user's balance by a signed delta.
func (s *AdminService) AdjustBalance(ctx context.Context, adminID, userID, delta int64) (*model.User, error) {
	user, err := s.users.AdjustBalance(ctx, userID, delta)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Int64("delta", delta).
		Str("operation", "adjust_balance").
		Msg("Admin operation executed")

	return user, nil
}

// ExportUsersCSV renders all users as a CSV document with the fixed
// nine-column header, one row per user.
func (s *AdminService) ExportUsersCSV(ctx context.Context) ([]byte, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, u := range users {
		row := []string{
			strconv.FormatInt(u.TelegramID, 10),
			u.FullName(),
			u.Username,
			u.Phone,
			strconv.FormatInt(u.Balance, 10),
			strconv.Itoa(u.PaidReferrals),
			strconv.Itoa(u.TotalReferrals),
			u.Status,
			u.CreatedAt.Format("2006-01-02"),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// ListUsers retrieves all users.
func (s *AdminService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.List(ctx)
}

// ListRegistered retrieves users whose payment has been approved.
func (s *AdminService) ListRegistered(ctx context.Context) ([]*model.User, error) {
	return s.users.ListByStatus(ctx, model.UserStatusActive)
}

// GetUser retrieves a single user for the admin detail view.
func (s *AdminService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// PendingPayments retrieves the payment review queue.
func (s *AdminService) PendingPayments(ctx context.Context) ([]*model.Payment, error) {
	return s.payments.ListPending(ctx)
}

// PendingWithdrawals retrieves the withdrawal review queue.
func (s *AdminService) PendingWithdrawals(ctx context.Context) ([]*model.Withdrawal, error) {
	return s.withdrawals.ListPending(ctx)
}

// Settings reads the current bot settings.
func (s *AdminService) Settings(ctx context.Context) (*model.BotSettings, error) {
	return s.settings.Get(ctx)
}

// ToggleMaintenance flips the bot between active and maintenance.
func (s *AdminService) ToggleMaintenance(ctx context.Context, adminID int64) (*model.BotSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	if settings.Status == model.BotStatusMaintenance {
		settings.Status = model.BotStatusActive
	} else {
		settings.Status = model.BotStatusMaintenance
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Str("status", settings.Status).
		Str("operation", "toggle_maintenance").
		Msg("Admin operation executed")

	return settings, nil
}

// Feature flag names accepted by ToggleFeature.
const (
	FeatureRegistration = "registration"
	FeaturePayments     = "payments"
	FeatureWithdrawals  = "withdrawals"
	FeatureLeaderboard  = "leaderboard"
)

// PaymentMethods lists every configured payout channel, active or not.
func (s *AdminService) PaymentMethods(ctx context.Context) ([]*model.PaymentMethod, error) {
	return s.settings.ListMethods(ctx, false)
}

// SetMethodActive switches a payout channel on or off by name. Returns
// repository.ErrMethodNotFound when no channel matches.
func (s *AdminService) SetMethodActive(ctx context.Context, adminID int64, name string, active bool) (*model.PaymentMethod, error) {
	methods, err := s.settings.ListMethods(ctx, false)
	if err != nil {
		return nil, err
	}

	for _, m := range methods {
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		m.Active = active
		if err := s.settings.SaveMethod(ctx, m); err != nil {
			return nil, err
		}

		log.Info().
			Int64("admin_id", adminID).
			Str("method", m.Name).
			Bool("active", active).
			Str("operation", "set_method_active").
			Msg("Admin operation executed")

		return m, nil
	}

	return nil, repository.ErrMethodNotFound
}

// ToggleFeature flips a named feature flag and returns the new settings.
func (s *AdminService) ToggleFeature(ctx context.Context, adminID int64, feature string) (*model.BotSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	switch feature {
	case FeatureRegistration:
		settings.RegistrationEnabled = !settings.RegistrationEnabled
	case FeaturePayments:
		settings.PaymentsEnabled = !settings.PaymentsEnabled
	case FeatureWithdrawals:
		settings.WithdrawalsEnabled = !settings.WithdrawalsEnabled
	case FeatureLeaderboard:
		settings.LeaderboardEnabled = !settings.LeaderboardEnabled
	default:
		return nil, fmt.Errorf("unknown feature %q", feature)
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Str("feature", feature).
		Str("operation", "toggle_feature").
		Msg("Admin operation executed")

	return settings, nil
}
