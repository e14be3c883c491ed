// Package main is the entry point for the referral program bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/bot"
	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/pkg/db"
	"telegram-referral-bot/internal/pkg/session"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	paymentRepo := repository.NewPaymentRepository(dbPool.Pool)
	withdrawalRepo := repository.NewWithdrawalRepository(dbPool.Pool)
	referralRepo := repository.NewReferralRepository(dbPool.Pool)
	settingsRepo := repository.NewSettingsRepository(dbPool.Pool)
	txManager := db.NewTxManager(dbPool.Pool)

	// Initialize services
	accountService := service.NewAccountService(userRepo, referralRepo, settingsRepo)
	paymentService := service.NewPaymentService(
		paymentRepo,
		userRepo,
		referralRepo,
		settingsRepo,
		txManager,
		cfg.Program.Fee,
		cfg.Program.Commission,
	)
	withdrawalService := service.NewWithdrawalService(
		withdrawalRepo,
		userRepo,
		settingsRepo,
		txManager,
		cfg.Withdrawal.MinReferrals,
		cfg.Withdrawal.MinAmount,
	)
	rankingService := service.NewRankingService(userRepo, 6)
	adminService := service.NewAdminService(userRepo, paymentRepo, withdrawalRepo, settingsRepo)

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:            cfg,
		AccountService:    accountService,
		PaymentService:    paymentService,
		WithdrawalService: withdrawalService,
		RankingService:    rankingService,
		AdminService:      adminService,
		Sessions:          session.NewStore(),
	}

	// Initialize bot
	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(32) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			balance BIGINT NOT NULL DEFAULT 0,
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_withdrawn BIGINT NOT NULL DEFAULT 0,
			paid_referrals INT NOT NULL DEFAULT 0,
			unpaid_referrals INT NOT NULL DEFAULT 0,
			total_referrals INT NOT NULL DEFAULT 0,
			referral_code VARCHAR(10) NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_paid_referrals ON users(paid_referrals DESC);
		CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create payments table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			screenshot_file_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			verified_by BIGINT,
			verified_at TIMESTAMPTZ,
			rejection_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status, submitted_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: payments table created")

	// Migration 3: Create withdrawals table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS withdrawals (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			method VARCHAR(50) NOT NULL,
			account_number VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_by BIGINT,
			processed_at TIMESTAMPTZ,
			rejection_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status, requested_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: withdrawals table created")

	// Migration 4: Create referrals table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS referrals (
			referrer_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			referred_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (referrer_id, referred_id)
		);
		CREATE INDEX IF NOT EXISTS idx_referrals_referred ON referrals(referred_id, status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: referrals table created")

	// Migration 5: Create bot_settings singleton row
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_settings (
			id INT PRIMARY KEY CHECK (id = 1),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			maintenance_message TEXT NOT NULL DEFAULT '',
			registration_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			payments_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			withdrawals_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			leaderboard_enabled BOOLEAN NOT NULL DEFAULT TRUE
		);
		INSERT INTO bot_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: bot_settings table created")

	// Migration 6: Create payment_methods with the default channels
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS payment_methods (
			name VARCHAR(50) PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			account_number VARCHAR(100) NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			instructions TEXT NOT NULL DEFAULT ''
		);
		INSERT INTO payment_methods (name, display_name) VALUES
			('telebirr', 'Telebirr'),
			('cbe', 'CBE')
		ON CONFLICT (name) DO NOTHING;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: payment_methods table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
