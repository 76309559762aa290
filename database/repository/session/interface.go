package sessionRepo

import (
	"context"
	"time"

	"shutterhub/models"
)

// SessionRepository defines data access for photo sessions (bookable units).
type SessionRepository interface {
	// GetByID retrieves a session by its unique ID.
	GetByID(id string) (*models.PhotoSession, error)
	// ListPublished retrieves all published sessions.
	ListPublished() ([]models.PhotoSession, error)
	// Create inserts a new session record.
	Create(session *models.PhotoSession) error
	// Update modifies an existing session record.
	Update(session *models.PhotoSession) error
	// Delete removes a session record by its ID.
	Delete(id string) error
	// SetPublished flips the published flag.
	SetPublished(id string, published bool) error

	// ReserveSeat atomically increments current_count while it is below
	// capacity. Returns false when the session is full or unknown.
	ReserveSeat(ctx context.Context, id string) (bool, error)
	// ReleaseSeat atomically decrements current_count while it is above
	// zero. Returns false when nothing was reserved.
	ReleaseSeat(ctx context.Context, id string) (bool, error)

	// MarkDrawn flips lottery.drawn exactly once. Returns false when the
	// lottery was already drawn, so a draw can never run twice.
	MarkDrawn(ctx context.Context, id string, seed string, at time.Time) (bool, error)
	// ListDueLotteries returns published, undrawn lottery sessions whose
	// lottery_date has passed.
	ListDueLotteries(now time.Time) ([]models.PhotoSession, error)
}
