package user

import (
	"context"
	"time"

	userRepo "shutterhub/database/repository/user"
	"shutterhub/models"

	"go.uber.org/zap"
)

// AuthResponse is returned on successful signup or signin.
type AuthResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Rank  string `json:"rank"`
}

// UserService defines account, rank, and priority-ticket operations.
type UserService interface {
	RegisterUser(ctx context.Context, name, email, password string) (*AuthResponse, error)
	AuthenticateUser(ctx context.Context, email, password string) (*AuthResponse, error)
	RevokeToken(ctx context.Context, token string) error
	GetUserByID(id string) (*models.User, error)
	UpdateFCMToken(id, token string) error

	RecalculateRank(ctx context.Context, userID string) (string, error)
	SetRankManual(ctx context.Context, userID, rank, reason, adminID string) error
	ClearManualRank(ctx context.Context, userID, adminID string) error

	IssueTicket(ctx context.Context, userID, sessionID, issuedBy string, expiresAt time.Time) (*models.PriorityTicket, error)
	ListTickets(userID string) ([]models.PriorityTicket, error)
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo   userRepo.UserRepository
	Logger *zap.Logger

	// TokenTTL bounds issued JWTs; defaults to 72h when zero.
	TokenTTL time.Duration
}

func (s *DefaultUserService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 72 * time.Hour
}

// GetUserByID returns the full user record.
func (s *DefaultUserService) GetUserByID(id string) (*models.User, error) {
	return s.Repo.GetByID(id)
}

// UpdateFCMToken registers the user's current push device token.
func (s *DefaultUserService) UpdateFCMToken(id, token string) error {
	u, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	u.FCMToken = token
	return s.Repo.Update(u)
}
