package service

import (
	"context"
	"fmt"
	"log/slog"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
	"tag-server/internal/lib/logger/sl"
)

const defaultStartingCoins = 20

type TeamService struct {
	log      *slog.Logger
	teamRepo TeamProvider
	userRepo TeamUserProvider
}

type TeamProvider interface {
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	CreateTeam(ctx context.Context, name string, coins float64) (*models.Team, error)
	UpdateTeamFields(ctx context.Context, id int64, upd models.TeamUpdate) error
	ListTeams(ctx context.Context) ([]models.Team, error)
}

type TeamUserProvider interface {
	SetUserTeam(ctx context.Context, id string, teamID int64) error
}

func NewTeamService(
	log *slog.Logger,
	teamRepo TeamProvider,
	userRepo TeamUserProvider) *TeamService {
	return &TeamService{
		log:      log,
		teamRepo: teamRepo,
		userRepo: userRepo,
	}
}

// CreateTeamWithMembers creates a team and moves every listed user onto
// it. Zero coins fall back to the default starting balance, matching the
// admin form behavior.
func (s *TeamService) CreateTeamWithMembers(ctx context.Context, name string, coins float64, members []string) (*models.Team, error) {
	const op = "service.team.CreateTeamWithMembers"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_name", name),
	)

	log.Info("attempting to create team with members")

	if name == "" {
		log.Error("team name is required")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNameRequired)
	}
	if len(members) == 0 {
		log.Error("team must have at least one member")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrMembersRequired)
	}
	if coins == 0 {
		coins = defaultStartingCoins
	}

	team, err := s.teamRepo.CreateTeam(ctx, name, coins)
	if err != nil {
		log.Error("failed to create team", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, member := range members {
		if err := s.userRepo.SetUserTeam(ctx, member, team.ID); err != nil {
			log.Error("failed to assign member", slog.String("user_id", member), sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("team created successfully",
		slog.Int64("team_id", team.ID),
		slog.Int("member_count", len(members)))

	return team, nil
}

func (s *TeamService) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	const op = "service.team.GetTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("team_id", id),
	)

	team, err := s.teamRepo.GetTeam(ctx, id)
	if err != nil {
		log.Error("failed to get team", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return team, nil
}

// AdminUpdateTeam applies a partial admin edit. Empty fields mean "no
// change"; the role value "none" clears the role.
func (s *TeamService) AdminUpdateTeam(ctx context.Context, id int64, upd models.TeamUpdate) error {
	const op = "service.team.AdminUpdateTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("team_id", id),
	)

	log.Info("attempting admin team update")

	if err := s.teamRepo.UpdateTeamFields(ctx, id, upd); err != nil {
		log.Error("failed to update team", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("team updated successfully")
	return nil
}
