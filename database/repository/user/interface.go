package userRepo

import (
	"context"
	"time"

	"shutterhub/models"
)

// UserRepository defines methods for user and priority-ticket data access.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(id string) (*models.User, error)
	// GetByEmail retrieves a user by its email address.
	GetByEmail(email string) (*models.User, error)
	// Create inserts a new user record.
	Create(user *models.User) error
	// Update modifies an existing user record.
	Update(user *models.User) error
	// Delete removes a user record by its ID.
	Delete(id string) error

	// CreateTicket inserts a new priority ticket grant.
	CreateTicket(ticket *models.PriorityTicket) error
	// FindUsableTicket returns an unexpired, unconsumed ticket the user holds
	// for the session, or nil.
	FindUsableTicket(userID, sessionID string, now time.Time) (*models.PriorityTicket, error)
	// ConsumeTicket marks a ticket consumed exactly once. Returns false when
	// the ticket was already consumed or expired.
	ConsumeTicket(ctx context.Context, ticketID string, now time.Time) (bool, error)
	// RestoreTicket clears a ticket's consumption after a booking attempt
	// that produced no booking.
	RestoreTicket(ctx context.Context, ticketID string) error
	// ListTicketsByUser retrieves a user's tickets.
	ListTicketsByUser(userID string) ([]models.PriorityTicket, error)

	// SearchNearbyPhotographers returns available photographers within
	// radiusKm of the given point, nearest first.
	SearchNearbyPhotographers(location models.GeoPoint, radiusKm float64) ([]models.User, error)
}
