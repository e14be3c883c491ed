package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

// ErrRegistrationDisabled is returned when the registration feature flag
// is off and the identity is unknown.
var ErrRegistrationDisabled = errors.New("registration disabled")

// codeAttempts bounds referral code regeneration on collision.
const codeAttempts = 5

// AccountService handles registration and profile operations.
type AccountService struct {
	users     UserStore
	referrals ReferralStore
	settings  SettingsStore
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(users UserStore, referrals ReferralStore, settings SettingsStore) *AccountService {
	return &AccountService{
		users:     users,
		referrals: referrals,
		settings:  settings,
	}
}

// Register ensures a user exists, creating one on first contact.
// A supplied referral code resolving to another user credits that
// referrer's counters and records a pending referral edge. Registering
// an existing identity changes no state beyond a last_seen refresh, so
// a second start event can never double-credit a referrer.
func (s *AccountService) Register(ctx context.Context, telegramID int64, username, firstName, lastName, referralCode string) (*model.User, bool, error) {
	user, err := s.users.GetByID(ctx, telegramID)
	if err == nil {
		if err := s.users.Touch(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to refresh last seen")
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.RegistrationEnabled {
		return nil, false, ErrRegistrationDisabled
	}

	user, err = s.createWithCode(ctx, telegramID, username, firstName, lastName)
	if err != nil {
		return nil, false, err
	}

	if referralCode != "" {
		s.linkReferrer(ctx, user, referralCode)
	}

	return user, true, nil
}

// createWithCode inserts the user, regenerating the referral code on a
// uniqueness collision.
func (s *AccountService) createWithCode(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := GenerateReferralCode(firstName)
		user, err := s.users.Create(ctx, telegramID, username, firstName, lastName, code)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrReferralCodeTaken) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.Debug().Str("code", code).Msg("Referral code collision, regenerating")
	}
	return nil, fmt.Errorf("failed to create user: exhausted %d referral code attempts", codeAttempts)
}

// linkReferrer resolves the code and records the referral edge.
// An unknown or self-referencing code is ignored, not an error.
func (s *AccountService) linkReferrer(ctx context.Context, user *model.User, code string) {
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		log.Debug().Str("code", code).Int64("user_id", user.TelegramID).Msg("Referral code did not resolve")
		return
	}
	if referrer.TelegramID == user.TelegramID {
		return
	}

	created, err := s.referrals.Create(ctx, referrer.TelegramID, user.TelegramID)
	if err != nil {
		log.Error().Err(err).Int64("referrer_id", referrer.TelegramID).Msg("Failed to record referral edge")
		return
	}
	if !created {
		return
	}

	if err := s.users.AddReferral(ctx, referrer.TelegramID); err != nil {
		log.Error().Err(err).Int64("referrer_id", referrer.TelegramID).Msg("Failed to bump referral counters")
		return
	}

	log.Info().
		Int64("referrer_id", referrer.TelegramID).
		Int64("referred_id", user.TelegramID).
		Msg("Referral recorded")
}

// Get retrieves a user by Telegram ID.
func (s *AccountService) Get(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}

// SetPhone stores the phone number a user shared via contact.
func (s *AccountService) SetPhone(ctx context.Context, telegramID int64, phone string) error {
	return s.users.SetPhone(ctx, telegramID, phone)
}

// Referrals lists a user's invited users, newest first.
func (s *AccountService) Referrals(ctx context.Context, telegramID int64) ([]*model.ReferralEntry, error) {
	return s.referrals.ListByReferrer(ctx, telegramID)
}

// Settings reads the current bot settings.
func (s *AccountService) Settings(ctx context.Context) (*model.BotSettings, error) {
	return s.settings.Get(ctx)
}

// ActiveMethods lists the currently active payment methods.
func (s *AccountService) ActiveMethods(ctx context.Context) ([]*model.PaymentMethod, error) {
	return s.settings.ListMethods(ctx, true)
}

// GenerateReferralCode builds a code from the first three letters of the
// first name, uppercased, plus three random digits. Names shorter than
// three letters are padded with X; uniqueness is enforced at insert time
// and collisions are retried by the caller.
func GenerateReferralCode(firstName string) string {
	return codePrefix(firstName) + fmt.Sprintf("%03d", rand.Intn(1000))
}

// codePrefix extracts the three-letter uppercase prefix.
func codePrefix(firstName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(firstName) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}
