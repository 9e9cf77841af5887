package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
)

type UserRepo struct {
	storage *sqlx.DB
}

func NewUserRepo(storage *sqlx.DB) *UserRepo {
	return &UserRepo{storage: storage}
}

func (r *UserRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "repo.user.GetUser"

	query := `SELECT id, name, admin, team, created_at FROM users WHERE id = $1`

	var user models.User
	err := r.storage.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// UpsertUser makes sure a row exists for the auth subject. An existing
// row keeps its name unless a new one is provided.
func (r *UserRepo) UpsertUser(ctx context.Context, id string, name *string) (*models.User, error) {
	const op = "repo.user.UpsertUser"

	query := `
        INSERT INTO users (id, name) VALUES ($1, $2)
        ON CONFLICT (id)
        DO UPDATE SET name = COALESCE(EXCLUDED.name, users.name)
        RETURNING id, name, admin, team, created_at`

	var user models.User
	err := r.storage.QueryRowxContext(ctx, query, id, name).StructScan(&user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *UserRepo) SetUserTeam(ctx context.Context, id string, teamID int64) error {
	const op = "repo.user.SetUserTeam"

	query := `UPDATE users SET team = $1 WHERE id = $2`

	result, err := r.storage.ExecContext(ctx, query, teamID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}

	return nil
}

// UpdateUserFields issues a single partial UPDATE for the provided
// fields, same conventions as the team variant.
func (r *UserRepo) UpdateUserFields(ctx context.Context, id string, upd models.UserUpdate) error {
	const op = "repo.user.UpdateUserFields"

	var sets []string
	var args []interface{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.ClearTeam {
		sets = append(sets, "team = NULL")
	} else if upd.Team != nil {
		set("team", *upd.Team)
	}
	if upd.Admin != nil {
		set("admin", *upd.Admin)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.storage.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}

	return nil
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "repo.user.ListUsers"

	query := `SELECT id, name, admin, team, created_at FROM users ORDER BY created_at`

	var users []models.User
	err := r.storage.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
