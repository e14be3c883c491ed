package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

const (
	testFee        = 500
	testCommission = 250
)

func newPaymentFixture() (*PaymentService, *fakeUserStore, *fakePaymentStore, *fakeReferralStore, *fakeSettingsStore) {
	users := newFakeUserStore()
	payments := newFakePaymentStore()
	referrals := newFakeReferralStore(users)
	settings := newFakeSettingsStore()
	svc := NewPaymentService(payments, users, referrals, settings, fakeTxManager{}, testFee, testCommission)
	return svc, users, payments, referrals, settings
}

func TestPaymentSubmit(t *testing.T) {
	svc, users, _, _, _ := newPaymentFixture()
	ctx := context.Background()

	users.add(&model.User{TelegramID: 10, FirstName: "Payer"})

	payment, err := svc.Submit(ctx, 10, "file-abc")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusPending, payment.Status)
	assert.Equal(t, int64(testFee), payment.Amount)
	assert.Equal(t, "file-abc", payment.ScreenshotFileID)
}

func TestPaymentSubmit_Disabled(t *testing.T) {
	svc, _, _, _, settings := newPaymentFixture()
	ctx := context.Background()

	s, _ := settings.Get(ctx)
	s.PaymentsEnabled = false
	require.NoError(t, settings.Save(ctx, s))

	_, err := svc.Submit(ctx, 10, "file-abc")
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestPaymentApprove_CreditsReferrerOnce(t *testing.T) {
	svc, users, _, referrals, _ := newPaymentFixture()
	ctx := context.Background()

	users.add(&model.User{TelegramID: 1, FirstName: "Ref", TotalReferrals: 1, UnpaidReferrals: 1})
	users.add(&model.User{TelegramID: 2, FirstName: "Payer"})
	_, err := referrals.Create(ctx, 1, 2)
	require.NoError(t, err)

	payment, err := svc.Submit(ctx, 2, "file-1")
	require.NoError(t, err)

	result, err := svc.Approve(ctx, payment.ID, 999)
	require.NoError(t, err)

	// Payer is activated
	assert.Equal(t, model.UserStatusActive, result.Payer.Status)

	// Referrer credited exactly the fixed commission, one unpaid became paid
	require.NotNil(t, result.Referrer)
	assert.Equal(t, int64(testCommission), result.Referrer.Balance)
	assert.Equal(t, int64(testCommission), result.Referrer.TotalEarned)
	assert.Equal(t, 1, result.Referrer.PaidReferrals)
	assert.Equal(t, 0, result.Referrer.UnpaidReferrals)

	// Edge flipped to paid
	entries, _ := referrals.ListByReferrer(ctx, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ReferralStatusPaid, entries[0].Status)

	// Second approval of the same payment must not double-credit
	_, err = svc.Approve(ctx, payment.ID, 999)
	assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)

	ref, _ := users.GetByID(ctx, 1)
	assert.Equal(t, int64(testCommission), ref.Balance)
	assert.Equal(t, 1, ref.PaidReferrals)
}

func TestPaymentApprove_UnpaidNeverNegative(t *testing.T) {
	svc, users, _, referrals, _ := newPaymentFixture()
	ctx := context.Background()

	// Referrer with a pending edge but a zero unpaid counter
	users.add(&model.User{TelegramID: 1, FirstName: "Ref"})
	users.add(&model.User{TelegramID: 2, FirstName: "Payer"})
	_, err := referrals.Create(ctx, 1, 2)
	require.NoError(t, err)

	payment, err := svc.Submit(ctx, 2, "file-1")
	require.NoError(t, err)

	result, err := svc.Approve(ctx, payment.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Referrer.UnpaidReferrals)
	assert.Equal(t, 1, result.Referrer.PaidReferrals)
}

func TestPaymentApprove_NoReferrer(t *testing.T) {
	svc, users, _, _, _ := newPaymentFixture()
	ctx := context.Background()

	users.add(&model.User{TelegramID: 2, FirstName: "Solo"})
	payment, err := svc.Submit(ctx, 2, "file-1")
	require.NoError(t, err)

	result, err := svc.Approve(ctx, payment.ID, 999)
	require.NoError(t, err)
	assert.Nil(t, result.Referrer)
	assert.Equal(t, model.UserStatusActive, result.Payer.Status)
}

func TestPaymentReject(t *testing.T) {
	svc, users, _, _, _ := newPaymentFixture()
	ctx := context.Background()

	users.add(&model.User{TelegramID: 2, FirstName: "Payer"})
	payment, err := svc.Submit(ctx, 2, "file-1")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, payment.ID, 999, "unreadable screenshot")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "unreadable screenshot", *rejected.RejectionReason)

	// Rejection is terminal too
	_, err = svc.Approve(ctx, payment.ID, 999)
	assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)

	// No credit happened anywhere
	payer, _ := users.GetByID(ctx, 2)
	assert.Zero(t, payer.Balance)
}

func TestPaymentReject_NotFound(t *testing.T) {
	svc, _, _, _, _ := newPaymentFixture()

	_, err := svc.Reject(context.Background(), 404, 999, "whatever")
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
}
