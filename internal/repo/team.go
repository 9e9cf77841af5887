package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
)

type TeamRepo struct {
	storage *sqlx.DB
}

func NewTeamRepo(storage *sqlx.DB) *TeamRepo {
	return &TeamRepo{storage: storage}
}

func (r *TeamRepo) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	const op = "repo.team.GetTeam"

	query := `SELECT id, name, coins, current_challenge, challenges_completed, role, veto_until
        FROM team WHERE id = $1`

	var team models.Team
	err := r.storage.GetContext(ctx, &team, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &team, nil
}

func (r *TeamRepo) CreateTeam(ctx context.Context, name string, coins float64) (*models.Team, error) {
	const op = "repo.team.CreateTeam"

	query := `INSERT INTO team (name, coins, challenges_completed) VALUES ($1, $2, '{}')
        RETURNING id, name, coins, current_challenge, challenges_completed, role, veto_until`

	var team models.Team
	err := r.storage.QueryRowxContext(ctx, query, name, coins).StructScan(&team)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &team, nil
}

func (r *TeamRepo) ListTeams(ctx context.Context) ([]models.Team, error) {
	const op = "repo.team.ListTeams"

	query := `SELECT id, name, coins, current_challenge, challenges_completed, role, veto_until
        FROM team ORDER BY id`

	var teams []models.Team
	err := r.storage.SelectContext(ctx, &teams, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return teams, nil
}

// UpdateTeamFields issues a single partial UPDATE for the provided
// fields. An empty update is a no-op rather than an error.
func (r *TeamRepo) UpdateTeamFields(ctx context.Context, id int64, upd models.TeamUpdate) error {
	const op = "repo.team.UpdateTeamFields"

	var sets []string
	var args []interface{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Coins != nil {
		set("coins", *upd.Coins)
	}
	if upd.ClearRole {
		sets = append(sets, "role = NULL")
	} else if upd.Role != nil {
		set("role", string(*upd.Role))
	}
	if upd.ClearCurrentChallenge {
		sets = append(sets, "current_challenge = NULL")
	} else if upd.CurrentChallenge != nil {
		set("current_challenge", *upd.CurrentChallenge)
	}
	if upd.ClearVetoUntil {
		sets = append(sets, "veto_until = NULL")
	} else if upd.VetoUntil != nil {
		set("veto_until", *upd.VetoUntil)
	}
	if upd.ChallengesCompleted != nil {
		set("challenges_completed", *upd.ChallengesCompleted)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE team SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.storage.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}

	return nil
}

// SelectTeamVeto reads only the veto deadline, used to resync cooldown
// state without refetching the whole row.
func (r *TeamRepo) SelectTeamVeto(ctx context.Context, id int64) (*time.Time, error) {
	const op = "repo.team.SelectTeamVeto"

	query := `SELECT veto_until FROM team WHERE id = $1`

	var vetoUntil sql.NullTime
	err := r.storage.GetContext(ctx, &vetoUntil, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !vetoUntil.Valid {
		return nil, nil
	}
	until := vetoUntil.Time
	return &until, nil
}
