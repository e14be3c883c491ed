package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

const (
	testMinReferrals = 4
	testMinAmount    = 100
)

func newWithdrawalFixture() (*WithdrawalService, *fakeUserStore, *fakeWithdrawalStore, *fakeSettingsStore) {
	users := newFakeUserStore()
	withdrawals := newFakeWithdrawalStore()
	settings := newFakeSettingsStore()
	svc := NewWithdrawalService(withdrawals, users, settings, fakeTxManager{}, testMinReferrals, testMinAmount)
	return svc, users, withdrawals, settings
}

func TestCheckEligibility(t *testing.T) {
	svc, _, _, _ := newWithdrawalFixture()
	ctx := context.Background()

	t.Run("referral shortfall reported first", func(t *testing.T) {
		err := svc.CheckEligibility(ctx, &model.User{PaidReferrals: 3, Balance: 500})
		var shortfall *ReferralShortfallError
		require.ErrorAs(t, err, &shortfall)
		assert.Equal(t, 3, shortfall.Have)
		assert.Equal(t, testMinReferrals, shortfall.Need)
	})

	t.Run("balance shortfall", func(t *testing.T) {
		err := svc.CheckEligibility(ctx, &model.User{PaidReferrals: 4, Balance: 50})
		var shortfall *BalanceShortfallError
		require.ErrorAs(t, err, &shortfall)
		assert.Equal(t, int64(50), shortfall.Have)
		assert.Equal(t, int64(testMinAmount), shortfall.Need)
	})

	t.Run("eligible at exact thresholds", func(t *testing.T) {
		err := svc.CheckEligibility(ctx, &model.User{PaidReferrals: 4, Balance: 100})
		assert.NoError(t, err)
	})
}

func TestCheckEligibility_Disabled(t *testing.T) {
	svc, _, _, settings := newWithdrawalFixture()
	ctx := context.Background()

	s, _ := settings.Get(ctx)
	s.WithdrawalsEnabled = false
	require.NoError(t, settings.Save(ctx, s))

	err := svc.CheckEligibility(ctx, &model.User{PaidReferrals: 10, Balance: 1000})
	assert.ErrorIs(t, err, ErrWithdrawalsDisabled)
}

// TestCheckEligibilityProperty verifies the gate over the whole input
// space: it passes exactly when both thresholds are met.
func TestCheckEligibilityProperty(t *testing.T) {
	svc, _, _, _ := newWithdrawalFixture()
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		paid := rapid.IntRange(0, 100).Draw(t, "paid")
		balance := rapid.Int64Range(0, 10000).Draw(t, "balance")

		err := svc.CheckEligibility(ctx, &model.User{PaidReferrals: paid, Balance: balance})
		eligible := paid >= testMinReferrals && balance >= testMinAmount

		if eligible && err != nil {
			t.Fatalf("paid=%d balance=%d should be eligible, got %v", paid, balance, err)
		}
		if !eligible && err == nil {
			t.Fatalf("paid=%d balance=%d should be ineligible", paid, balance)
		}
	})
}

func TestParseRequest(t *testing.T) {
	svc, _, _, _ := newWithdrawalFixture()

	t.Run("valid", func(t *testing.T) {
		req, err := svc.ParseRequest("1000|telebirr|251912345678")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), req.Amount)
		assert.Equal(t, "telebirr", req.Method)
		assert.Equal(t, "251912345678", req.Account)
	})

	t.Run("whitespace tolerated", func(t *testing.T) {
		req, err := svc.ParseRequest(" 150 | Telebirr | 0911 ")
		require.NoError(t, err)
		assert.Equal(t, int64(150), req.Amount)
		assert.Equal(t, "Telebirr", req.Method)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.ParseRequest("1000|telebirr")
		assert.ErrorIs(t, err, ErrMalformedRequest)

		_, err = svc.ParseRequest("1000||0911")
		assert.ErrorIs(t, err, ErrMalformedRequest)
	})

	t.Run("bad amount", func(t *testing.T) {
		var amountErr *AmountError

		_, err := svc.ParseRequest("abc|telebirr|0911")
		assert.ErrorAs(t, err, &amountErr)

		_, err = svc.ParseRequest("50|telebirr|0911")
		assert.ErrorAs(t, err, &amountErr)
	})
}

func TestWithdrawalSubmit(t *testing.T) {
	svc, users, _, _ := newWithdrawalFixture()
	ctx := context.Background()

	user := users.add(&model.User{TelegramID: 7, FirstName: "Rich", Balance: 1500, PaidReferrals: 6})

	t.Run("success", func(t *testing.T) {
		withdrawal, method, err := svc.Submit(ctx, user, "1000|telebirr|251912345678")
		require.NoError(t, err)
		assert.Equal(t, model.ReviewStatusPending, withdrawal.Status)
		assert.Equal(t, int64(1000), withdrawal.Amount)
		assert.Equal(t, "telebirr", withdrawal.Method)
		assert.Equal(t, "Telebirr", method.DisplayName)
		// Balance untouched until an admin approves
		assert.Equal(t, int64(1500), user.Balance)
	})

	t.Run("method case-insensitive", func(t *testing.T) {
		_, method, err := svc.Submit(ctx, user, "200|TELEBIRR|0911")
		require.NoError(t, err)
		assert.Equal(t, "telebirr", method.Name)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		poor := users.add(&model.User{TelegramID: 8, FirstName: "Poor", Balance: 500, PaidReferrals: 6})
		_, _, err := svc.Submit(ctx, poor, "1000|telebirr|251912345678")
		var insufficient *InsufficientBalanceError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, int64(1000), insufficient.Requested)
		assert.Equal(t, int64(500), insufficient.Balance)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, _, err := svc.Submit(ctx, user, "200|paypal|someone@example.com")
		var unknown *UnknownMethodError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "paypal", unknown.Method)
	})

	t.Run("balance checked before method", func(t *testing.T) {
		// Both failures present: the balance error must win per the
		// validation order.
		broke := users.add(&model.User{TelegramID: 9, FirstName: "Broke", Balance: 100})
		_, _, err := svc.Submit(ctx, broke, "5000|paypal|x")
		var insufficient *InsufficientBalanceError
		assert.ErrorAs(t, err, &insufficient)
	})
}

func TestWithdrawalApprove(t *testing.T) {
	svc, users, _, _ := newWithdrawalFixture()
	ctx := context.Background()

	user := users.add(&model.User{TelegramID: 7, FirstName: "Rich", Balance: 1500, TotalEarned: 1500, PaidReferrals: 6})
	withdrawal, _, err := svc.Submit(ctx, user, "1000|telebirr|0911")
	require.NoError(t, err)

	result, err := svc.Approve(ctx, withdrawal.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusApproved, result.Withdrawal.Status)
	assert.Equal(t, int64(500), result.User.Balance)
	assert.Equal(t, int64(1000), result.User.TotalWithdrawn)
	// balance = totalEarned - totalWithdrawn holds
	assert.Equal(t, result.User.TotalEarned-result.User.TotalWithdrawn, result.User.Balance)

	// Re-approval must not double-debit
	_, err = svc.Approve(ctx, withdrawal.ID, 999)
	assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)

	got, _ := users.GetByID(ctx, 7)
	assert.Equal(t, int64(500), got.Balance)
}

func TestWithdrawalReject(t *testing.T) {
	svc, users, _, _ := newWithdrawalFixture()
	ctx := context.Background()

	user := users.add(&model.User{TelegramID: 7, FirstName: "Rich", Balance: 1500, PaidReferrals: 6})
	withdrawal, _, err := svc.Submit(ctx, user, "1000|telebirr|0911")
	require.NoError(t, err)

	result, err := svc.Reject(ctx, withdrawal.ID, 999, "account number invalid")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusRejected, result.Withdrawal.Status)
	// Balance untouched on rejection
	assert.Equal(t, int64(1500), result.User.Balance)

	_, err = svc.Approve(ctx, withdrawal.ID, 999)
	assert.True(t, errors.Is(err, repository.ErrAlreadyProcessed))
}
