package services

import (
	"context"
	"errors"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

// UserService — чтение профилей и лидерборда Aura.
type UserService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Leaderboard — игроки по убыванию Aura, глобально или в рамках сервера.
func (s *UserService) Leaderboard(ctx context.Context, filter repositories.LeaderboardFilter) ([]models.User, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLeaderboardLimit
	}
	if filter.Limit > maxLeaderboardLimit {
		filter.Limit = maxLeaderboardLimit
	}
	return s.users.Leaderboard(ctx, filter)
}
