// Package model defines the data models for the referral program bot.
package model

import "time"

// User statuses.
const (
	UserStatusPending = "pending" // registered, payment not yet approved
	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"
)

// Review statuses shared by payments and withdrawals.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// Referral statuses.
const (
	ReferralStatusPending = "pending"
	ReferralStatusPaid    = "paid"
)

// Bot operating statuses.
const (
	BotStatusActive      = "active"
	BotStatusMaintenance = "maintenance"
)

// User represents a program participant.
// balance = total_earned - total_withdrawn is maintained by construction:
// the only writers are the referral-credit and withdrawal-approve paths.
type User struct {
	TelegramID      int64     `db:"telegram_id"`
	Username        string    `db:"username"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	Phone           string    `db:"phone"`
	Status          string    `db:"status"`
	Balance         int64     `db:"balance"`
	TotalEarned     int64     `db:"total_earned"`
	TotalWithdrawn  int64     `db:"total_withdrawn"`
	PaidReferrals   int       `db:"paid_referrals"`
	UnpaidReferrals int       `db:"unpaid_referrals"`
	TotalReferrals  int       `db:"total_referrals"`
	ReferralCode    string    `db:"referral_code"`
	CreatedAt       time.Time `db:"created_at"`
	LastSeen        time.Time `db:"last_seen"`
}

// DisplayName returns the best human-readable name for a user.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName()
}

// FullName returns the first and last name joined.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Payment represents a proof-of-payment submission awaiting admin review.
// Transitions pending -> approved|rejected exactly once; immutable after.
type Payment struct {
	ID               int64      `db:"id"`
	UserID           int64      `db:"user_id"`
	ScreenshotFileID string     `db:"screenshot_file_id"`
	Amount           int64      `db:"amount"`
	Status           string     `db:"status"`
	SubmittedAt      time.Time  `db:"submitted_at"`
	VerifiedBy       *int64     `db:"verified_by"`
	VerifiedAt       *time.Time `db:"verified_at"`
	RejectionReason  *string    `db:"rejection_reason"`
}

// Withdrawal represents a payout request awaiting admin review.
type Withdrawal struct {
	ID              int64      `db:"id"`
	UserID          int64      `db:"user_id"`
	Amount          int64      `db:"amount"`
	Method          string     `db:"method"`
	AccountNumber   string     `db:"account_number"`
	Status          string     `db:"status"`
	RequestedAt     time.Time  `db:"requested_at"`
	ProcessedBy     *int64     `db:"processed_by"`
	ProcessedAt     *time.Time `db:"processed_at"`
	RejectionReason *string    `db:"rejection_reason"`
}

// Referral is the directed edge from an inviting user to an invited user.
// At most one edge exists per (referrer, referred) pair.
type Referral struct {
	ReferrerID int64     `db:"referrer_id"`
	ReferredID int64     `db:"referred_id"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// BotSettings holds the process-wide runtime switches, read by every
// handler and written only by admin settings actions.
type BotSettings struct {
	Status              string `db:"status"`
	MaintenanceMessage  string `db:"maintenance_message"`
	RegistrationEnabled bool   `db:"registration_enabled"`
	PaymentsEnabled     bool   `db:"payments_enabled"`
	WithdrawalsEnabled  bool   `db:"withdrawals_enabled"`
	LeaderboardEnabled  bool   `db:"leaderboard_enabled"`
}

// PaymentMethod is a configured payout channel.
type PaymentMethod struct {
	Name          string `db:"name"` // lowercase key, matched case-insensitively
	DisplayName   string `db:"display_name"`
	AccountNumber string `db:"account_number"`
	Active        bool   `db:"active"`
	Instructions  string `db:"instructions"`
}

// ReferralEntry is a referral edge joined with the invited user's name,
// used for the inviter's referral list display.
type ReferralEntry struct {
	ReferredID int64     `db:"referred_id"`
	Name       string    `db:"name"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	Users              int64
	Payments           int64
	PendingPayments    int64
	PendingWithdrawals int64
	Revenue            int64 // sum of approved payment amounts
}
