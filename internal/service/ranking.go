package service

import (
	"context"

	"telegram-referral-bot/internal/model"
)

// RankingService handles leaderboard operations.
type RankingService struct {
	users UserStore
	limit int
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(users UserStore, limit int) *RankingService {
	if limit <= 0 {
		limit = 6
	}
	return &RankingService{users: users, limit: limit}
}

// Leaderboard retrieves the top referrers in strictly descending paid
// referral order. Users with zero paid referrals never appear.
func (s *RankingService) Leaderboard(ctx context.Context) ([]*model.User, error) {
	return s.users.Leaderboard(ctx, s.limit)
}

// UserRank returns the requester's 1-based rank within the same
// filtered ordering, or 0 ("Not ranked") for users with no paid
// referrals.
func (s *RankingService) UserRank(ctx context.Context, telegramID int64) (int, error) {
	return s.users.Rank(ctx, telegramID)
}
