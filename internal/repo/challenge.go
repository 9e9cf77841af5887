package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
)

type ChallengeRepo struct {
	storage *sqlx.DB
}

func NewChallengeRepo(storage *sqlx.DB) *ChallengeRepo {
	return &ChallengeRepo{storage: storage}
}

// SelectChallengesExcluding returns every challenge whose id is not in
// excludeIDs. An empty exclude list returns all challenges.
func (r *ChallengeRepo) SelectChallengesExcluding(ctx context.Context, excludeIDs []int64) ([]models.Challenge, error) {
	const op = "repo.challenge.SelectChallengesExcluding"

	query := `SELECT id, name, description, min_coins, max_coins, is_curse
        FROM challenges WHERE id <> ALL($1) ORDER BY id`

	var challenges []models.Challenge
	err := r.storage.SelectContext(ctx, &challenges, query, pq.Array(excludeIDs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return challenges, nil
}

func (r *ChallengeRepo) GetChallenge(ctx context.Context, id int64) (*models.Challenge, error) {
	const op = "repo.challenge.GetChallenge"

	query := `SELECT id, name, description, min_coins, max_coins, is_curse
        FROM challenges WHERE id = $1`

	var challenge models.Challenge
	err := r.storage.GetContext(ctx, &challenge, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrChallengeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &challenge, nil
}
