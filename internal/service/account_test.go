package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-referral-bot/internal/model"
)

func newAccountFixture() (*AccountService, *fakeUserStore, *fakeReferralStore, *fakeSettingsStore) {
	users := newFakeUserStore()
	referrals := newFakeReferralStore(users)
	settings := newFakeSettingsStore()
	return NewAccountService(users, referrals, settings), users, referrals, settings
}

func TestRegister_NewUser(t *testing.T) {
	svc, _, _, _ := newAccountFixture()
	ctx := context.Background()

	user, created, err := svc.Register(ctx, 100, "abel", "Abel", "Bekele", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.UserStatusPending, user.Status)
	assert.Zero(t, user.Balance)
	assert.Zero(t, user.PaidReferrals)
	assert.Zero(t, user.TotalReferrals)
	assert.Regexp(t, regexp.MustCompile(`^ABE\d{3}$`), user.ReferralCode)
}

func TestRegister_SecondStartIsIdempotent(t *testing.T) {
	svc, users, _, _ := newAccountFixture()
	ctx := context.Background()

	referrer, _, err := svc.Register(ctx, 1, "ref", "Ref", "", "")
	require.NoError(t, err)

	_, created, err := svc.Register(ctx, 2, "newbie", "New", "", referrer.ReferralCode)
	require.NoError(t, err)
	assert.True(t, created)

	// Second start event: no duplicate user, no double referrer credit
	_, created, err = svc.Register(ctx, 2, "newbie", "New", "", referrer.ReferralCode)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalReferrals)
	assert.Equal(t, 1, got.UnpaidReferrals)
	assert.Equal(t, int64(2), mustCount(t, users))
}

func TestRegister_ReferralCredit(t *testing.T) {
	svc, users, referrals, _ := newAccountFixture()
	ctx := context.Background()

	referrer, _, err := svc.Register(ctx, 1, "ref", "Ref", "", "")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, 2, "invited", "Invited", "", referrer.ReferralCode)
	require.NoError(t, err)

	got, _ := users.GetByID(ctx, 1)
	assert.Equal(t, 1, got.TotalReferrals)
	assert.Equal(t, 1, got.UnpaidReferrals)
	assert.Equal(t, 0, got.PaidReferrals)

	entries, err := referrals.ListByReferrer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ReferredID)
	assert.Equal(t, model.ReferralStatusPending, entries[0].Status)
}

func TestRegister_UnknownCodeIgnored(t *testing.T) {
	svc, _, referrals, _ := newAccountFixture()
	ctx := context.Background()

	user, created, err := svc.Register(ctx, 5, "solo", "Solo", "", "NOPE123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, user)

	entries, _ := referrals.ListByReferrer(ctx, 5)
	assert.Empty(t, entries)
}

func TestRegister_DisabledRejectsUnknownUser(t *testing.T) {
	svc, _, _, settings := newAccountFixture()
	ctx := context.Background()

	s, _ := settings.Get(ctx)
	s.RegistrationEnabled = false
	require.NoError(t, settings.Save(ctx, s))

	_, _, err := svc.Register(ctx, 9, "late", "Late", "", "")
	assert.ErrorIs(t, err, ErrRegistrationDisabled)

	// Known users still get through with the flag off
	s.RegistrationEnabled = true
	require.NoError(t, settings.Save(ctx, s))
	_, _, err = svc.Register(ctx, 9, "late", "Late", "", "")
	require.NoError(t, err)

	s.RegistrationEnabled = false
	require.NoError(t, settings.Save(ctx, s))
	_, created, err := svc.Register(ctx, 9, "late", "Late", "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRegister_CodeCollisionRetries(t *testing.T) {
	svc, users, _, _ := newAccountFixture()
	ctx := context.Background()

	// Pre-claim every code the generator can produce except one digit
	// space is impractical; instead claim a single code and verify a
	// same-prefix registration still succeeds via regeneration.
	users.add(&model.User{TelegramID: 50, FirstName: "Abel", ReferralCode: "ABE123"})

	user, created, err := svc.Register(ctx, 51, "abel2", "Abel", "", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "", user.ReferralCode)
}

func TestGenerateReferralCode_Format(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z]{0,10}`).Draw(t, "name")
		code := GenerateReferralCode(name)

		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		if !regexp.MustCompile(`^[A-Z]{3}\d{3}$`).MatchString(code) {
			t.Fatalf("code %q does not match LLLDDD", code)
		}
	})
}

func TestCodePrefix(t *testing.T) {
	assert.Equal(t, "ABE", codePrefix("Abel"))
	assert.Equal(t, "ABX", codePrefix("ab"))
	assert.Equal(t, "XXX", codePrefix(""))
	assert.Equal(t, "XXX", codePrefix("  42 "))
	assert.Equal(t, "SAR", codePrefix("sara"))
}

func mustCount(t *testing.T, users *fakeUserStore) int64 {
	t.Helper()
	count, err := users.Count(context.Background())
	require.NoError(t, err)
	return count
}
