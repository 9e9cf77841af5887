package service

import (
	"context"
	"fmt"
	"log/slog"

	"tag-server/internal/domain/models"
	"tag-server/internal/lib/logger/sl"
)

// OverviewService backs the admin screen: every player and every team in
// one read.
type OverviewService struct {
	log      *slog.Logger
	teamRepo OverviewTeamProvider
	userRepo OverviewUserProvider
}

type OverviewTeamProvider interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
}

type OverviewUserProvider interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

type Overview struct {
	Users []models.User `json:"users"`
	Teams []models.Team `json:"teams"`
}

func NewOverviewService(
	log *slog.Logger,
	teamRepo OverviewTeamProvider,
	userRepo OverviewUserProvider) *OverviewService {
	return &OverviewService{
		log:      log,
		teamRepo: teamRepo,
		userRepo: userRepo,
	}
}

func (s *OverviewService) GetOverview(ctx context.Context) (*Overview, error) {
	const op = "service.overview.GetOverview"

	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		s.log.Error("failed to list users", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	teams, err := s.teamRepo.ListTeams(ctx)
	if err != nil {
		s.log.Error("failed to list teams", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Overview{Users: users, Teams: teams}, nil
}
