package services

import (
	"context"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/internal/utils"
	"github.com/pairpoints/pairpoints-backend/internal/validation"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/sirupsen/logrus"
)

// UserService handles user-related business logic.
type UserService struct {
	userRepo repositories.UserRepository
	connRepo repositories.ConnectionRepository
	sync     *SyncManager
	log      *logrus.Entry
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, connRepo repositories.ConnectionRepository, syncManager *SyncManager, logger *logrus.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		connRepo: connRepo,
		sync:     syncManager,
		log:      logger.WithField("component", "users"),
	}
}

// GetUser retrieves a user by their external id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := validation.UserID(id).Err(); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, id)
}

// RegenerateMatchingCode replaces the user's matching code with a fresh
// unique one. Rejected while the user has an active connection: their
// current code is not in play and a new one would serve no pairing.
func (s *UserService) RegenerateMatchingCode(ctx context.Context, id string) (string, error) {
	if err := validation.UserID(id).Err(); err != nil {
		return "", err
	}
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		return "", err
	}
	existing, err := s.connRepo.FindActiveByUserID(ctx, id)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return "", err
	}
	if existing != nil {
		return "", apperrors.ConnectionState("cannot regenerate a matching code while connected")
	}

	var code string
	err = s.execute(ctx, "user.regenerateCode", func(ctx context.Context) error {
		code, err = uniqueMatchingCode(ctx, s.userRepo)
		if err != nil {
			return err
		}
		return s.userRepo.SetMatchingCode(ctx, id, code)
	})
	if err != nil {
		return "", err
	}
	s.log.WithField("userId", id).Info("matching code regenerated")
	return code, nil
}

// uniqueMatchingCode generates a code no existing user holds. Collisions in
// a 36^6 space are rare; a handful of attempts is plenty.
func uniqueMatchingCode(ctx context.Context, userRepo repositories.UserRepository) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := utils.GenerateMatchingCode()
		if err != nil {
			return "", apperrors.Unknown("generate matching code", err)
		}
		_, err = userRepo.FindByMatchingCode(ctx, code)
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return code, nil
		}
		if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
			return "", err
		}
	}
	return "", apperrors.New(apperrors.CodeUnknown, "could not find a free matching code")
}

func (s *UserService) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.sync == nil {
		return fn(ctx)
	}
	return s.sync.Execute(ctx, op, fn)
}
