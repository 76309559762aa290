package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shutterhub/models"
	"shutterhub/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Expected auth outcomes.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

// RegisterUser creates an account and returns a signed token. New accounts
// start at bronze rank with the plain user role.
func (s *DefaultUserService) RegisterUser(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if existing, _ := s.Repo.GetByEmail(email); existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	u := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         models.RoleUser,
		Rank:         models.RankBronze,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := utils.GenerateToken(u.ID, u.Role, s.tokenTTL())
	if err != nil {
		s.Logger.Error("RegisterUser: token generation failed", zap.Error(err))
		return nil, fmt.Errorf("registration failed, please try again")
	}

	return &AuthResponse{
		ID:    u.ID,
		Token: token,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		Rank:  u.Rank,
	}, nil
}

// AuthenticateUser verifies credentials and returns a fresh token.
func (s *DefaultUserService) AuthenticateUser(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Repo.GetByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(u.ID, u.Role, s.tokenTTL())
	if err != nil {
		s.Logger.Error("AuthenticateUser: token generation failed", zap.Error(err))
		return nil, fmt.Errorf("authentication failed, please try again")
	}

	return &AuthResponse{
		ID:    u.ID,
		Token: token,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		Rank:  u.Rank,
	}, nil
}

// RevokeToken blacklists a token hash until its natural expiry. The auth
// middleware checks this list on every request.
func (s *DefaultUserService) RevokeToken(ctx context.Context, token string) error {
	client := utils.GetAuthCacheClient()
	key := utils.RevokedTokenPrefix + utils.HashToken(token)
	if err := client.Set(ctx, key, "1", s.tokenTTL()).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
