package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

// In-memory fakes implementing the store interfaces, mirroring the SQL
// semantics of the pgx repositories so service tests run deterministically
// without a database.

type fakeUserStore struct {
	users map[int64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*model.User)}
}

func (f *fakeUserStore) add(u *model.User) *model.User {
	if u.Status == "" {
		u.Status = model.UserStatusPending
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	f.users[u.TelegramID] = u
	return u
}

func (f *fakeUserStore) Create(_ context.Context, telegramID int64, username, firstName, lastName, referralCode string) (*model.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == referralCode {
			return nil, repository.ErrReferralCodeTaken
		}
	}
	u := &model.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Status:       model.UserStatusPending,
		ReferralCode: referralCode,
		CreatedAt:    time.Now(),
		LastSeen:     time.Now(),
	}
	f.users[telegramID] = u
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, telegramID int64) (*model.User, error) {
	u, ok := f.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByReferralCode(_ context.Context, code string) (*model.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) Touch(_ context.Context, telegramID int64, username string) error {
	u, ok := f.users[telegramID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Username = username
	u.LastSeen = time.Now()
	return nil
}

func (f *fakeUserStore) SetPhone(_ context.Context, telegramID int64, phone string) error {
	u, ok := f.users[telegramID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Phone = phone
	return nil
}

func (f *fakeUserStore) SetStatus(_ context.Context, telegramID int64, status string) (*model.User, error) {
	u, ok := f.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Status = status
	return u, nil
}

func (f *fakeUserStore) AddReferral(_ context.Context, referrerID int64) error {
	u, ok := f.users[referrerID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.TotalReferrals++
	u.UnpaidReferrals++
	return nil
}

func (f *fakeUserStore) CreditCommission(_ context.Context, telegramID int64, commission int64) (*model.User, error) {
	u, ok := f.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.PaidReferrals++
	if u.UnpaidReferrals > 0 {
		u.UnpaidReferrals--
	}
	u.Balance += commission
	u.TotalEarned += commission
	return u, nil
}

func (f *fakeUserStore) ApplyWithdrawal(_ context.Context, telegramID int64, amount int64) (*model.User, error) {
	u, ok := f.users[telegramID]
	if !ok || u.Balance < amount {
		return nil, repository.ErrInsufficientBalance
	}
	u.Balance -= amount
	u.TotalWithdrawn += amount
	return u, nil
}

func (f *fakeUserStore) AdjustBalance(_ context.Context, telegramID int64, delta int64) (*model.User, error) {
	u, ok := f.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Balance += delta
	return u, nil
}

func (f *fakeUserStore) List(_ context.Context) ([]*model.User, error) {
	users := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (f *fakeUserStore) ListByStatus(ctx context.Context, status string) ([]*model.User, error) {
	all, _ := f.List(ctx)
	var users []*model.User
	for _, u := range all {
		if u.Status == status {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeUserStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserStore) Leaderboard(_ context.Context, limit int) ([]*model.User, error) {
	var users []*model.User
	for _, u := range f.users {
		if u.PaidReferrals > 0 {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].PaidReferrals > users[j].PaidReferrals })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (f *fakeUserStore) Rank(_ context.Context, telegramID int64) (int, error) {
	me, ok := f.users[telegramID]
	if !ok || me.PaidReferrals == 0 {
		return 0, nil
	}
	rank := 1
	for _, u := range f.users {
		if u.PaidReferrals > me.PaidReferrals {
			rank++
		}
	}
	return rank, nil
}

type fakePaymentStore struct {
	nextID   int64
	payments map[int64]*model.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{nextID: 1, payments: make(map[int64]*model.Payment)}
}

func (f *fakePaymentStore) Create(_ context.Context, userID int64, screenshotFileID string, amount int64) (*model.Payment, error) {
	p := &model.Payment{
		ID:               f.nextID,
		UserID:           userID,
		ScreenshotFileID: screenshotFileID,
		Amount:           amount,
		Status:           model.ReviewStatusPending,
		SubmittedAt:      time.Now(),
	}
	f.nextID++
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakePaymentStore) Approve(_ context.Context, id, adminID int64) (*model.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if p.Status != model.ReviewStatusPending {
		return nil, repository.ErrAlreadyProcessed
	}
	now := time.Now()
	p.Status = model.ReviewStatusApproved
	p.VerifiedBy = &adminID
	p.VerifiedAt = &now
	return p, nil
}

func (f *fakePaymentStore) Reject(_ context.Context, id, adminID int64, reason string) (*model.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if p.Status != model.ReviewStatusPending {
		return nil, repository.ErrAlreadyProcessed
	}
	now := time.Now()
	p.Status = model.ReviewStatusRejected
	p.VerifiedBy = &adminID
	p.VerifiedAt = &now
	p.RejectionReason = &reason
	return p, nil
}

func (f *fakePaymentStore) ListPending(_ context.Context) ([]*model.Payment, error) {
	var pending []*model.Payment
	for _, p := range f.payments {
		if p.Status == model.ReviewStatusPending {
			pending = append(pending, p)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

func (f *fakePaymentStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.payments)), nil
}

func (f *fakePaymentStore) CountPending(ctx context.Context) (int64, error) {
	pending, _ := f.ListPending(ctx)
	return int64(len(pending)), nil
}

func (f *fakePaymentStore) SumApproved(_ context.Context) (int64, error) {
	var sum int64
	for _, p := range f.payments {
		if p.Status == model.ReviewStatusApproved {
			sum += p.Amount
		}
	}
	return sum, nil
}

type fakeWithdrawalStore struct {
	nextID      int64
	withdrawals map[int64]*model.Withdrawal
}

func newFakeWithdrawalStore() *fakeWithdrawalStore {
	return &fakeWithdrawalStore{nextID: 1, withdrawals: make(map[int64]*model.Withdrawal)}
}

func (f *fakeWithdrawalStore) Create(_ context.Context, userID, amount int64, method, accountNumber string) (*model.Withdrawal, error) {
	w := &model.Withdrawal{
		ID:            f.nextID,
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		AccountNumber: accountNumber,
		Status:        model.ReviewStatusPending,
		RequestedAt:   time.Now(),
	}
	f.nextID++
	f.withdrawals[w.ID] = w
	return w, nil
}

func (f *fakeWithdrawalStore) Approve(_ context.Context, id, adminID int64) (*model.Withdrawal, error) {
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	if w.Status != model.ReviewStatusPending {
		return nil, repository.ErrAlreadyProcessed
	}
	now := time.Now()
	w.Status = model.ReviewStatusApproved
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now
	return w, nil
}

func (f *fakeWithdrawalStore) Reject(_ context.Context, id, adminID int64, reason string) (*model.Withdrawal, error) {
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	if w.Status != model.ReviewStatusPending {
		return nil, repository.ErrAlreadyProcessed
	}
	now := time.Now()
	w.Status = model.ReviewStatusRejected
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now
	w.RejectionReason = &reason
	return w, nil
}

func (f *fakeWithdrawalStore) ListPending(_ context.Context) ([]*model.Withdrawal, error) {
	var pending []*model.Withdrawal
	for _, w := range f.withdrawals {
		if w.Status == model.ReviewStatusPending {
			pending = append(pending, w)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

func (f *fakeWithdrawalStore) CountPending(ctx context.Context) (int64, error) {
	pending, _ := f.ListPending(ctx)
	return int64(len(pending)), nil
}

type fakeReferralStore struct {
	users *fakeUserStore
	edges map[[2]int64]*model.Referral
}

func newFakeReferralStore(users *fakeUserStore) *fakeReferralStore {
	return &fakeReferralStore{users: users, edges: make(map[[2]int64]*model.Referral)}
}

func (f *fakeReferralStore) Create(_ context.Context, referrerID, referredID int64) (bool, error) {
	key := [2]int64{referrerID, referredID}
	if _, ok := f.edges[key]; ok {
		return false, nil
	}
	f.edges[key] = &model.Referral{
		ReferrerID: referrerID,
		ReferredID: referredID,
		Status:     model.ReferralStatusPending,
		CreatedAt:  time.Now(),
	}
	return true, nil
}

func (f *fakeReferralStore) MarkPaid(_ context.Context, referredID int64) (int64, error) {
	for _, edge := range f.edges {
		if edge.ReferredID == referredID && edge.Status == model.ReferralStatusPending {
			edge.Status = model.ReferralStatusPaid
			return edge.ReferrerID, nil
		}
	}
	return 0, repository.ErrNoPendingReferral
}

func (f *fakeReferralStore) ListByReferrer(_ context.Context, referrerID int64) ([]*model.ReferralEntry, error) {
	var entries []*model.ReferralEntry
	for _, edge := range f.edges {
		if edge.ReferrerID != referrerID {
			continue
		}
		name := ""
		if u, ok := f.users.users[edge.ReferredID]; ok {
			name = u.Username
			if name == "" {
				name = u.FirstName
			}
		}
		entries = append(entries, &model.ReferralEntry{
			ReferredID: edge.ReferredID,
			Name:       name,
			Status:     edge.Status,
			CreatedAt:  edge.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

type fakeSettingsStore struct {
	settings model.BotSettings
	methods  map[string]*model.PaymentMethod
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{
		settings: model.BotSettings{
			Status:              model.BotStatusActive,
			RegistrationEnabled: true,
			PaymentsEnabled:     true,
			WithdrawalsEnabled:  true,
			LeaderboardEnabled:  true,
		},
		methods: map[string]*model.PaymentMethod{
			"telebirr": {Name: "telebirr", DisplayName: "Telebirr", AccountNumber: "0911000000", Active: true},
			"cbe":      {Name: "cbe", DisplayName: "CBE Birr", AccountNumber: "1000200030", Active: true},
		},
	}
}

func (f *fakeSettingsStore) Get(_ context.Context) (*model.BotSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettingsStore) Save(_ context.Context, s *model.BotSettings) error {
	f.settings = *s
	return nil
}

func (f *fakeSettingsStore) ListMethods(_ context.Context, activeOnly bool) ([]*model.PaymentMethod, error) {
	var methods []*model.PaymentMethod
	for _, m := range f.methods {
		if !activeOnly || m.Active {
			methods = append(methods, m)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	return methods, nil
}

func (f *fakeSettingsStore) GetActiveMethod(_ context.Context, name string) (*model.PaymentMethod, error) {
	m, ok := f.methods[strings.ToLower(name)]
	if !ok || !m.Active {
		return nil, repository.ErrMethodNotFound
	}
	return m, nil
}

func (f *fakeSettingsStore) SaveMethod(_ context.Context, m *model.PaymentMethod) error {
	f.methods[strings.ToLower(m.Name)] = m
	return nil
}

// fakeTxManager runs the function directly; the in-memory fakes have no
// transactional semantics to enforce.
type fakeTxManager struct{}

func (fakeTxManager) Begin(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
