package waitlistRepo

import (
	"time"

	"shutterhub/models"
)

// WaitlistRepository defines data access for waitlist entries.
type WaitlistRepository interface {
	// Create inserts a new entry record.
	Create(entry *models.WaitlistEntry) error
	// GetByID retrieves an entry by its unique ID.
	GetByID(id string) (*models.WaitlistEntry, error)
	// MaxPosition returns the highest queue_position for a session (0 when empty).
	MaxPosition(sessionID string) (int, error)
	// FindActiveBySessionAndUser returns a user's waiting or promoted entry, or nil.
	FindActiveBySessionAndUser(sessionID, userID string) (*models.WaitlistEntry, error)
	// NextWaiting returns the lowest-position waiting entry, or nil when the
	// queue is empty.
	NextWaiting(sessionID string) (*models.WaitlistEntry, error)
	// HasPromoted reports whether the session already has a promoted entry.
	HasPromoted(sessionID string) (bool, error)
	// MarkPromoted transitions waiting -> promoted with a deadline. Returns
	// false when the entry was not waiting.
	MarkPromoted(id string, deadline time.Time, at time.Time) (bool, error)
	// MarkConfirmed transitions promoted -> confirmed, recording the booking.
	// Returns false when the entry was not promoted.
	MarkConfirmed(id, bookingID string) (bool, error)
	// MarkExpired transitions promoted -> expired. Returns false when the
	// entry was not promoted.
	MarkExpired(id string) (bool, error)
	// MarkCancelled transitions waiting -> cancelled. Returns false when the
	// entry was not waiting.
	MarkCancelled(id string) (bool, error)
	// ListStalePromotions returns promoted entries whose deadline has passed.
	ListStalePromotions(now time.Time) ([]models.WaitlistEntry, error)
	// ListBySession retrieves all entries for a session in queue order.
	ListBySession(sessionID string) ([]models.WaitlistEntry, error)
}
