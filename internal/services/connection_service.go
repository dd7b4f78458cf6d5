package services

import (
	"context"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/internal/validation"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/pairpoints/pairpoints-backend/pkg/streams"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConnectionService manages the pairing lifecycle. A user appears in at
// most one active connection at any time; that invariant is enforced inside
// the storage transaction, not by client-side serialization.
type ConnectionService struct {
	runner   repositories.TransactionRunner
	connRepo repositories.ConnectionRepository
	userRepo repositories.UserRepository
	sync     *SyncManager
	log      *logrus.Entry
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(runner repositories.TransactionRunner, connRepo repositories.ConnectionRepository, userRepo repositories.UserRepository, syncManager *SyncManager, logger *logrus.Logger) *ConnectionService {
	return &ConnectionService{
		runner:   runner,
		connRepo: connRepo,
		userRepo: userRepo,
		sync:     syncManager,
		log:      logger.WithField("component", "connections"),
	}
}

// CreateConnection pairs two users. The no-existing-active-connection check
// for both users, the connection insert, and both partner-id writes run as
// one storage transaction, so a concurrent attempt to pair either user
// cannot interleave between check and write.
func (s *ConnectionService) CreateConnection(ctx context.Context, userAID, userBID string) (*models.Connection, error) {
	result := validation.Merge(
		validation.UserID(userAID),
		validation.UserID(userBID),
	)
	if err := result.Err(); err != nil {
		return nil, err
	}
	if userAID == userBID {
		return nil, apperrors.ConnectionState("cannot connect a user to themselves")
	}

	var created *models.Connection
	err := s.execute(ctx, "connection.create", func(ctx context.Context) error {
		return s.runner.RunTransaction(ctx, func(ctx context.Context) error {
			for _, id := range []string{userAID, userBID} {
				if _, err := s.userRepo.FindByID(ctx, id); err != nil {
					return err
				}
				existing, err := s.connRepo.FindActiveByUserID(ctx, id)
				if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
					return err
				}
				if existing != nil {
					return apperrors.Newf(apperrors.CodeConnectionState,
						"user %s already has an active connection", id)
				}
			}

			conn := &models.Connection{
				UserAID:  userAID,
				UserBID:  userBID,
				IsActive: true,
			}
			if err := s.connRepo.Create(ctx, conn); err != nil {
				return err
			}
			if err := s.userRepo.SetPartner(ctx, userAID, userBID); err != nil {
				return err
			}
			if err := s.userRepo.SetPartner(ctx, userBID, userAID); err != nil {
				return err
			}
			created = conn
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"connectionId": created.ID.Hex(), "userA": userAID, "userB": userBID,
	}).Info("connection created")
	return created, nil
}

// GetConnection returns the user's active connection. The user may be
// stored as either member of the pair; the repository merges both lookups
// into a single result.
func (s *ConnectionService) GetConnection(ctx context.Context, userID string) (*models.Connection, error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return nil, err
	}
	return s.connRepo.FindActiveByUserID(ctx, userID)
}

// ObserveConnection streams the user's active connection as a full
// snapshot: the record while one exists, nil otherwise. Re-emitted on every
// relevant storage change; cancel the subscription to stop delivery.
func (s *ConnectionService) ObserveConnection(ctx context.Context, userID string) (*streams.Subscription[*models.Connection], error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return nil, err
	}
	events, stop, err := s.connRepo.Watch(ctx)
	if err != nil {
		return nil, err
	}
	sub := streams.NewSubscription[*models.Connection](1)
	go func() {
		defer stop()
		for {
			conn, err := s.connRepo.FindActiveByUserID(ctx, userID)
			if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
				s.log.WithError(err).Warn("connection snapshot re-derivation failed")
			} else if !sub.Publish(conn) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
			}
		}
	}()
	return sub, nil
}

// DisconnectUsers deactivates a connection and clears both partner-id
// fields as one storage transaction. The connection record survives,
// flagged inactive.
func (s *ConnectionService) DisconnectUsers(ctx context.Context, connectionID primitive.ObjectID) error {
	err := s.execute(ctx, "connection.disconnect", func(ctx context.Context) error {
		return s.runner.RunTransaction(ctx, func(ctx context.Context) error {
			conn, err := s.connRepo.FindByID(ctx, connectionID)
			if err != nil {
				if apperrors.HasCode(err, apperrors.CodeNotFound) {
					return apperrors.Newf(apperrors.CodeConnectionState,
						"connection %s not found", connectionID.Hex())
				}
				return err
			}
			if !conn.IsActive {
				return apperrors.ConnectionState("connection is already inactive")
			}
			if err := s.connRepo.Deactivate(ctx, conn.ID); err != nil {
				return err
			}
			if err := s.userRepo.ClearPartner(ctx, conn.UserAID); err != nil {
				return err
			}
			return s.userRepo.ClearPartner(ctx, conn.UserBID)
		})
	})
	if err != nil {
		return err
	}
	s.log.WithField("connectionId", connectionID.Hex()).Info("connection deactivated")
	return nil
}

// ValidateMatchingCode resolves a matching code to the user id it belongs
// to. Malformed codes fail validation; a well-formed code that matches
// nobody resolves to "" with no error; a code whose owner already has an
// active connection is rejected.
func (s *ConnectionService) ValidateMatchingCode(ctx context.Context, code string) (string, error) {
	if err := validation.MatchingCode(code).Err(); err != nil {
		return "", err
	}
	user, err := s.userRepo.FindByMatchingCode(ctx, code)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return "", nil
		}
		return "", err
	}
	existing, err := s.connRepo.FindActiveByUserID(ctx, user.ID)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return "", err
	}
	if existing != nil {
		return "", apperrors.ConnectionState("the matched user already has an active connection")
	}
	return user.ID, nil
}

func (s *ConnectionService) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.sync == nil {
		return fn(ctx)
	}
	return s.sync.Execute(ctx, op, fn)
}
