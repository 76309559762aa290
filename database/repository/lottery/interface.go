package lotteryRepo

import (
	"context"
	"time"

	"shutterhub/models"
)

// LotteryRepository defines data access for lottery entries.
type LotteryRepository interface {
	// Create inserts a new entry record.
	Create(entry *models.LotteryEntry) error
	// GetByID retrieves an entry by its unique ID.
	GetByID(id string) (*models.LotteryEntry, error)
	// FindBySessionAndUser returns a user's entry for a session, or nil.
	FindBySessionAndUser(sessionID, userID string) (*models.LotteryEntry, error)
	// ListBySession retrieves entries for a session, optionally filtered by status.
	ListBySession(sessionID string, statuses ...string) ([]models.LotteryEntry, error)
	// SetStatus updates one entry's status (admin selection/rejection path).
	SetStatus(id, status, bookingID string, at time.Time) error
	// ResolveDraw applies a completed draw in one transaction: winner entries
	// become won with their bookings inserted, losers become lost, and the
	// session's current_count advances by the number of winners.
	ResolveDraw(ctx context.Context, sessionID string, winners map[string]*models.Booking, loserIDs []string, at time.Time) error
}
