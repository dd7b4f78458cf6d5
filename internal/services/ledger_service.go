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

// TransactionNotifier receives just-created ledger entries for the
// notification hand-off. Failures are logged, never surfaced to the sender.
type TransactionNotifier interface {
	TransactionCreated(ctx context.Context, transaction *models.Transaction) error
}

// LedgerService applies point transactions to the shared balance. The
// ledger is one-directional: only the receiver's balance moves, the sender
// is never debited. Entries are append-only and immutable.
type LedgerService struct {
	runner   repositories.TransactionRunner
	txRepo   repositories.TransactionRepository
	userRepo repositories.UserRepository
	connRepo repositories.ConnectionRepository
	timeouts *TimeoutService
	sync     *SyncManager
	notifier TransactionNotifier
	log      *logrus.Entry
}

// NewLedgerService creates a new LedgerService. notifier may be nil.
func NewLedgerService(runner repositories.TransactionRunner, txRepo repositories.TransactionRepository, userRepo repositories.UserRepository, connRepo repositories.ConnectionRepository, timeouts *TimeoutService, syncManager *SyncManager, notifier TransactionNotifier, logger *logrus.Logger) *LedgerService {
	return &LedgerService{
		runner:   runner,
		txRepo:   txRepo,
		userRepo: userRepo,
		connRepo: connRepo,
		timeouts: timeouts,
		sync:     syncManager,
		notifier: notifier,
		log:      logger.WithField("component", "ledger"),
	}
}

// GivePoints awards points to the receiver. The magnitude is supplied
// positive; the entry is recorded as a positive GIVE.
func (s *LedgerService) GivePoints(ctx context.Context, senderID, receiverID string, magnitude int, message string, connectionID primitive.ObjectID) (*models.Transaction, error) {
	return s.CreateTransaction(ctx, senderID, receiverID, magnitude, message, connectionID, models.TransactionTypeGive)
}

// DeductPoints removes points from the receiver. The magnitude is supplied
// positive and negated internally; the entry is recorded as a negative
// DEDUCT. Balances may go below zero.
func (s *LedgerService) DeductPoints(ctx context.Context, senderID, receiverID string, magnitude int, message string, connectionID primitive.ObjectID) (*models.Transaction, error) {
	return s.CreateTransaction(ctx, senderID, receiverID, -magnitude, message, connectionID, models.TransactionTypeDeduct)
}

// CreateTransaction validates every precondition, then appends the ledger
// entry and increments the receiver's balance as a single atomic storage
// transaction: no state where one exists without the other is ever
// observable, and concurrent increments compose (balance += points) so no
// update is lost. All precondition failures are typed and occur before any
// write.
func (s *LedgerService) CreateTransaction(ctx context.Context, senderID, receiverID string, points int, message string, connectionID primitive.ObjectID, txType models.TransactionType) (*models.Transaction, error) {
	result := validation.Merge(
		validation.Points(points, txType),
		validation.Message(message),
		validation.UserID(senderID),
		validation.UserID(receiverID),
		validation.DistinctUsers(senderID, receiverID),
	)
	if err := result.Err(); err != nil {
		return nil, err
	}

	var created *models.Transaction
	err := s.execute(ctx, "ledger.createTransaction", func(ctx context.Context) error {
		conn, err := s.connRepo.FindByID(ctx, connectionID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				return apperrors.Newf(apperrors.CodeConnectionState,
					"connection %s not found", connectionID.Hex())
			}
			return err
		}
		if !conn.IsActive {
			return apperrors.ConnectionState("connection is not active")
		}
		if !conn.Contains(senderID) || !conn.Contains(receiverID) {
			return apperrors.ConnectionState("connection does not pair sender and receiver")
		}

		if active, err := s.timeouts.GetActiveTimeout(ctx, connectionID); err != nil {
			return err
		} else if active != nil {
			return apperrors.TimeoutActive("a cooldown is running for this connection")
		}

		return s.runner.RunTransaction(ctx, func(ctx context.Context) error {
			t := &models.Transaction{
				SenderID:     senderID,
				ReceiverID:   receiverID,
				Points:       points,
				Message:      message,
				ConnectionID: connectionID,
				Type:         txType,
			}
			if err := s.txRepo.Create(ctx, t); err != nil {
				return err
			}
			if err := s.userRepo.IncrementPoints(ctx, receiverID, points); err != nil {
				return err
			}
			created = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if nerr := s.notifier.TransactionCreated(ctx, created); nerr != nil {
			s.log.WithError(nerr).WithField("transactionId", created.ID.Hex()).
				Warn("transaction notification hand-off failed")
		}
	}
	s.log.WithFields(logrus.Fields{
		"transactionId": created.ID.Hex(),
		"sender":        senderID,
		"receiver":      receiverID,
		"points":        points,
		"type":          txType,
	}).Info("transaction applied")
	return created, nil
}

// GetTransactionHistory returns every transaction where the user is sender
// or receiver, newest first.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userID string) ([]*models.Transaction, error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return nil, err
	}
	return s.txRepo.FindByUserID(ctx, userID)
}

// ObserveTransactions streams the user's transaction history. Every
// emission is the full, ordered, current snapshot, re-emitted whenever a
// relevant transaction is created, not an incremental diff. Whole snapshots
// cost bandwidth but keep clients stateless; do not quietly switch this to
// deltas.
func (s *LedgerService) ObserveTransactions(ctx context.Context, userID string) (*streams.Subscription[[]*models.Transaction], error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return nil, err
	}
	events, stop, err := s.txRepo.Watch(ctx)
	if err != nil {
		return nil, err
	}
	sub := streams.NewSubscription[[]*models.Transaction](1)
	go func() {
		defer stop()
		for {
			snapshot, err := s.txRepo.FindByUserID(ctx, userID)
			if err != nil {
				s.log.WithError(err).Warn("transaction snapshot re-derivation failed")
			} else if !sub.Publish(snapshot) {
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

func (s *LedgerService) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.sync == nil {
		return fn(ctx)
	}
	return s.sync.Execute(ctx, op, fn)
}
