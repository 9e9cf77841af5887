package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tag-server/internal/domain/models"
	"tag-server/internal/game"
	"tag-server/internal/lib/logger/sl"
)

// GameTeamProvider is what the game service needs from the team repo.
type GameTeamProvider interface {
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	UpdateTeamFields(ctx context.Context, id int64, upd models.TeamUpdate) error
	SelectTeamVeto(ctx context.Context, id int64) (*time.Time, error)
}

// GameChallengeProvider serves the eligible-challenge query.
type GameChallengeProvider interface {
	SelectChallengesExcluding(ctx context.Context, excludeIDs []int64) ([]models.Challenge, error)
}

// GameService owns the per-team game sessions. Sessions are created on
// demand from the persisted team row and kept until invalidated by an
// admin edit or shutdown.
type GameService struct {
	log        *slog.Logger
	teamRepo   GameTeamProvider
	challenges GameChallengeProvider
	clock      clockwork.Clock
	opts       []game.Option

	mu       sync.Mutex
	sessions map[int64]*game.Session
}

func NewGameService(
	log *slog.Logger,
	teamRepo GameTeamProvider,
	challenges GameChallengeProvider,
	clock clockwork.Clock,
	opts ...game.Option,
) *GameService {
	return &GameService{
		log:        log,
		teamRepo:   teamRepo,
		challenges: challenges,
		clock:      clock,
		opts:       opts,
		sessions:   make(map[int64]*game.Session),
	}
}

func (s *GameService) Draw(ctx context.Context, teamID int64) (*models.Challenge, error) {
	const op = "service.game.Draw"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	challenge, err := sess.Draw(ctx)
	if err != nil {
		s.log.Warn("draw declined", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("challenge drawn",
		slog.String("op", op),
		slog.Int64("team_id", teamID),
		slog.Int64("challenge_id", challenge.ID))

	return challenge, nil
}

func (s *GameService) Complete(ctx context.Context, teamID int64, winnable int) (float64, error) {
	const op = "service.game.Complete"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	balance, err := sess.Complete(ctx, winnable)
	if err != nil {
		s.log.Warn("complete declined", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("challenge completed",
		slog.String("op", op),
		slog.Int64("team_id", teamID),
		slog.Int("winnable", winnable),
		slog.Float64("balance", balance))

	return balance, nil
}

func (s *GameService) Pass(ctx context.Context, teamID int64) error {
	const op = "service.game.Pass"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := sess.Pass(ctx); err != nil {
		s.log.Warn("pass declined", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("challenge passed", slog.String("op", op), slog.Int64("team_id", teamID))
	return nil
}

func (s *GameService) Veto(ctx context.Context, teamID int64) (time.Time, error) {
	const op = "service.game.Veto"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	deadline, err := sess.Veto(ctx)
	if err != nil {
		s.log.Warn("veto declined", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("challenge vetoed",
		slog.String("op", op),
		slog.Int64("team_id", teamID),
		slog.Time("until", deadline))

	return deadline, nil
}

func (s *GameService) StartTransit(ctx context.Context, teamID int64) error {
	const op = "service.game.StartTransit"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := sess.StartTransit(ctx); err != nil {
		s.log.Warn("transit start declined", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("transit started", slog.String("op", op), slog.Int64("team_id", teamID))
	return nil
}

func (s *GameService) StopTransit(ctx context.Context, teamID int64) (float64, error) {
	const op = "service.game.StopTransit"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	balance, err := sess.StopTransit(ctx)
	if err != nil {
		s.log.Warn("transit stop declined", slog.String("op", op), slog.Int64("team_id", teamID), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("transit stopped",
		slog.String("op", op),
		slog.Int64("team_id", teamID),
		slog.Float64("balance", balance))

	return balance, nil
}

func (s *GameService) Snapshot(ctx context.Context, teamID int64) (*game.Snapshot, error) {
	const op = "service.game.Snapshot"

	sess, err := s.session(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snap := sess.Snapshot(ctx)
	return &snap, nil
}

// Invalidate drops a team's session so the next gameplay call reloads the
// persisted row. Called after out-of-band admin edits.
func (s *GameService) Invalidate(teamID int64) {
	s.mu.Lock()
	sess, ok := s.sessions[teamID]
	delete(s.sessions, teamID)
	s.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// Shutdown closes every session, flushing their pending writes.
func (s *GameService) Shutdown() {
	s.mu.Lock()
	sessions := make([]*game.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[int64]*game.Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *GameService) session(ctx context.Context, teamID int64) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[teamID]; ok {
		return sess, nil
	}

	team, err := s.teamRepo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	opts := append([]game.Option{game.WithClock(s.clock)}, s.opts...)
	sess := game.NewSession(s.log, s.teamRepo, s.challenges, *team, opts...)
	s.sessions[teamID] = sess
	return sess, nil
}
