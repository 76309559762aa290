package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shutterhub/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTicketExpiry is returned when a ticket would expire in the past.
var ErrTicketExpiry = errors.New("ticket expiry must be in the future")

// IssueTicket grants a single-use priority ticket for one session. Tickets
// are organizer- or admin-issued; the holder spends it by booking through
// the session's ticket window.
func (s *DefaultUserService) IssueTicket(ctx context.Context, userID, sessionID, issuedBy string, expiresAt time.Time) (*models.PriorityTicket, error) {
	if !expiresAt.After(time.Now()) {
		return nil, ErrTicketExpiry
	}
	if _, err := s.Repo.GetByID(userID); err != nil {
		return nil, err
	}

	ticket := &models.PriorityTicket{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		IssuedBy:  issuedBy,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.Repo.CreateTicket(ticket); err != nil {
		return nil, fmt.Errorf("failed to issue ticket: %w", err)
	}

	s.Logger.Info("priority ticket issued",
		zap.String("ticket", ticket.ID),
		zap.String("user", userID),
		zap.String("session", sessionID),
		zap.String("issuedBy", issuedBy))
	return ticket, nil
}

// ListTickets returns all tickets a user holds, spent or not.
func (s *DefaultUserService) ListTickets(userID string) ([]models.PriorityTicket, error) {
	return s.Repo.ListTicketsByUser(userID)
}
