package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pairpoints/pairpoints-backend/internal/config"
	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/internal/validation"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/sirupsen/logrus"
)

// AuthService provisions users on first sign-in and issues API tokens.
// Identity verification happens upstream at the authentication provider;
// the id presented here is already trusted.
type AuthService struct {
	userRepo repositories.UserRepository
	sync     *SyncManager
	cfg      *config.Config
	log      *logrus.Entry
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, syncManager *SyncManager, cfg *config.Config, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sync:     syncManager,
		cfg:      cfg,
		log:      logger.WithField("component", "auth"),
	}
}

// SignIn returns the user for the given provider id, creating the record on
// first sign-in with a fresh unique matching code, and issues a bearer
// token for the API.
func (s *AuthService) SignIn(ctx context.Context, userID, displayName string) (*models.User, string, error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, "", err
		}
		user, err = s.provision(ctx, userID, displayName)
		if err != nil {
			return nil, "", err
		}
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, "", apperrors.Unknown("sign token", err)
	}
	return user, token, nil
}

func (s *AuthService) provision(ctx context.Context, userID, displayName string) (*models.User, error) {
	if displayName == "" {
		displayName = userID
	}
	var user *models.User
	err := s.execute(ctx, "auth.provision", func(ctx context.Context) error {
		code, err := uniqueMatchingCode(ctx, s.userRepo)
		if err != nil {
			return err
		}
		user = &models.User{
			ID:           userID,
			DisplayName:  displayName,
			MatchingCode: code,
		}
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("userId", userID).Info("user provisioned on first sign-in")
	return user, nil
}

func (s *AuthService) generateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Duration(s.cfg.JWT.ExpiresIn) * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.Secret))
}

func (s *AuthService) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.sync == nil {
		return fn(ctx)
	}
	return s.sync.Execute(ctx, op, fn)
}
