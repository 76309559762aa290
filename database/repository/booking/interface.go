package bookingRepo

import (
	"time"

	"shutterhub/models"
)

// BookingRepository defines data access for bookings.
type BookingRepository interface {
	// GetByID retrieves a booking by its unique ID.
	GetByID(id string) (*models.Booking, error)
	// Create inserts a new booking record.
	Create(booking *models.Booking) error
	// FindActive returns the active (pending or confirmed) booking for a
	// (session, user) pair, or nil when none exists.
	FindActive(sessionID, userID string) (*models.Booking, error)
	// ListByUser retrieves all bookings made by a user.
	ListByUser(userID string) ([]models.Booking, error)
	// ListBySession retrieves all bookings for a session.
	ListBySession(sessionID string) ([]models.Booking, error)
	// Cancel marks a booking cancelled. Returns false when the booking was
	// not active.
	Cancel(id string, at time.Time) (bool, error)
	// SetStatus updates the booking status.
	SetStatus(id, status string) error
}
