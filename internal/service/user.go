package service

import (
	"context"
	"fmt"
	"log/slog"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
	"tag-server/internal/lib/logger/sl"
)

type UserService struct {
	log      *slog.Logger
	userRepo UserProvider
}

type UserProvider interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpsertUser(ctx context.Context, id string, name *string) (*models.User, error)
	UpdateUserFields(ctx context.Context, id string, upd models.UserUpdate) error
}

func NewUserService(
	log *slog.Logger,
	userRepo UserProvider) *UserService {
	return &UserService{
		log:      log,
		userRepo: userRepo,
	}
}

// Register makes sure a user row exists for the authenticated subject.
// Safe to call on every sign-in.
func (s *UserService) Register(ctx context.Context, subject string, name *string) (*models.User, error) {
	const op = "service.user.Register"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", subject),
	)

	if subject == "" {
		log.Error("user id is required")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUserIDRequired)
	}

	user, err := s.userRepo.UpsertUser(ctx, subject, name)
	if err != nil {
		log.Error("failed to upsert user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered")
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "service.user.GetUser"

	user, err := s.userRepo.GetUser(ctx, id)
	if err != nil {
		s.log.Error("failed to get user", slog.String("op", op), slog.String("user_id", id), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// AdminUpdateUser applies a partial admin edit to a user row.
func (s *UserService) AdminUpdateUser(ctx context.Context, id string, upd models.UserUpdate) error {
	const op = "service.user.AdminUpdateUser"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", id),
	)

	log.Info("attempting admin user update")

	if id == "" {
		log.Error("user id is required")
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserIDRequired)
	}

	if err := s.userRepo.UpdateUserFields(ctx, id, upd); err != nil {
		log.Error("failed to update user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user updated successfully")
	return nil
}
