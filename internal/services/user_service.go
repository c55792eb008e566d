package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"
)

type userService struct {
	userRepo repositories.UserRepositoryInterface
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepositoryInterface, logger *slog.Logger) UserServiceInterface {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// ResolveUser returns the local user for an authenticated identity, creating
// it the first time the identity is seen.
func (s *userService) ResolveUser(ctx context.Context, claims *models.CustomClaims) (*models.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, ErrUserNotResolved
	}

	user, err := s.userRepo.GetByExternalID(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &models.User{
		ExternalID: claims.Subject,
		Email:      strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:       strings.TrimSpace(claims.Name),
		ImageURL:   claims.ImageURL,
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserNotResolved, err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Two first requests for the same identity can race; the loser reads
		// the winner's row.
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return s.userRepo.GetByExternalID(ctx, claims.Subject)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID.String()),
		slog.String("external_id", user.ExternalID),
	)

	return user, nil
}
