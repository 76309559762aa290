package user

import (
	"context"
	"errors"
	"time"

	"shutterhub/models"

	"go.uber.org/zap"
)

// ErrUnknownRank is returned for a manual rank outside the recognised set.
var ErrUnknownRank = errors.New("unknown rank")

// Rank thresholds over the participation score. No-shows count double
// against completed bookings so chronic absentees sink faster than they climb.
const (
	noShowPenalty     = 2
	silverThreshold   = 3
	goldThreshold     = 10
	platinumThreshold = 25
	vipThreshold      = 50
)

func rankForScore(score int) string {
	switch {
	case score >= vipThreshold:
		return models.RankVIP
	case score >= platinumThreshold:
		return models.RankPlatinum
	case score >= goldThreshold:
		return models.RankGold
	case score >= silverThreshold:
		return models.RankSilver
	default:
		return models.RankBronze
	}
}

func validRank(rank string) bool {
	switch rank {
	case models.RankBronze, models.RankSilver, models.RankGold, models.RankPlatinum, models.RankVIP:
		return true
	}
	return false
}

// RecalculateRank recomputes a user's rank from participation history and
// returns the resulting rank. Manually pinned ranks are left untouched until
// an admin clears the pin.
func (s *DefaultUserService) RecalculateRank(ctx context.Context, userID string) (string, error) {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if u.RankManual {
		return u.Rank, nil
	}

	score := u.CompletedBookings - noShowPenalty*u.NoShows
	next := rankForScore(score)
	if next == u.Rank {
		return u.Rank, nil
	}

	u.RankHistory = append(u.RankHistory, models.RankChange{
		From:      u.Rank,
		To:        next,
		Manual:    false,
		ChangedAt: time.Now(),
	})
	prev := u.Rank
	u.Rank = next
	if err := s.Repo.Update(u); err != nil {
		return "", err
	}

	s.Logger.Info("user rank recalculated",
		zap.String("user", userID),
		zap.String("from", prev),
		zap.String("to", next),
		zap.Int("score", score))
	return next, nil
}

// SetRankManual pins a user's rank by admin decision. The pin survives
// recalculation sweeps; the reason is kept for audit.
func (s *DefaultUserService) SetRankManual(ctx context.Context, userID, rank, reason, adminID string) error {
	if !validRank(rank) {
		return ErrUnknownRank
	}
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		return err
	}

	u.RankHistory = append(u.RankHistory, models.RankChange{
		From:      u.Rank,
		To:        rank,
		Manual:    true,
		Reason:    reason,
		ChangedBy: adminID,
		ChangedAt: time.Now(),
	})
	u.Rank = rank
	u.RankManual = true
	u.RankReason = reason
	if err := s.Repo.Update(u); err != nil {
		return err
	}

	s.Logger.Info("user rank set manually",
		zap.String("user", userID),
		zap.String("rank", rank),
		zap.String("admin", adminID))
	return nil
}

// ClearManualRank removes the pin and immediately recalculates.
func (s *DefaultUserService) ClearManualRank(ctx context.Context, userID, adminID string) error {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		return err
	}
	u.RankManual = false
	u.RankReason = ""
	if err := s.Repo.Update(u); err != nil {
		return err
	}
	_, err = s.RecalculateRank(ctx, userID)
	return err
}
