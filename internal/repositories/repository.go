package repositories

import (
	"context"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionRunner executes fn inside a single atomic multi-record
// transaction of the backing store. Every repository call made with the
// context passed to fn participates in that transaction: either all writes
// commit or none do. Used for every operation that reads state and writes
// derived state (balance increments, one-active-connection check-and-set).
type TransactionRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Watcher is implemented by repositories whose collection supports live
// change notification. Events are coarse: receipt means "something in this
// collection changed, re-read what you care about". The returned stop
// function releases the watch; the channel is closed afterwards.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, func(), error)
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByMatchingCode(ctx context.Context, code string) (*models.User, error)
	SetMatchingCode(ctx context.Context, id, code string) error
	SetPartner(ctx context.Context, id, partnerID string) error
	ClearPartner(ctx context.Context, id string) error
	IncrementPoints(ctx context.Context, id string, delta int) error
	Watch(ctx context.Context) (<-chan struct{}, func(), error)
}

// ConnectionRepository defines the interface for connection data operations.
type ConnectionRepository interface {
	Create(ctx context.Context, connection *models.Connection) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error)
	// FindActiveByUserID looks the user up as either member of the pair and
	// returns the single merged result, or a NotFound error when the user
	// has no active connection.
	FindActiveByUserID(ctx context.Context, userID string) (*models.Connection, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	Watch(ctx context.Context) (<-chan struct{}, func(), error)
}

// TransactionRepository defines the interface for ledger entries.
// Transactions are append-only: there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	// FindByUserID returns every transaction where the user is sender or
	// receiver, newest first.
	FindByUserID(ctx context.Context, userID string) ([]*models.Transaction, error)
	Watch(ctx context.Context) (<-chan struct{}, func(), error)
}

// TimeoutRepository defines the interface for cooldown records.
type TimeoutRepository interface {
	Create(ctx context.Context, timeout *models.Timeout) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Timeout, error)
	// FindLatestActiveByConnectionID returns the most recent timeout for the
	// connection whose stored active flag is still set, or a NotFound error.
	FindLatestActiveByConnectionID(ctx context.Context, connectionID primitive.ObjectID) (*models.Timeout, error)
	// FindLatestActiveByUserID is the user-side equivalent, used for
	// eligibility checks.
	FindLatestActiveByUserID(ctx context.Context, userID string) (*models.Timeout, error)
	CountByUserAndDate(ctx context.Context, userID, dateKey string) (int64, error)
	FindAllActive(ctx context.Context) ([]*models.Timeout, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	Watch(ctx context.Context) (<-chan struct{}, func(), error)
}

// NotificationRepository defines the interface for notification hand-off
// records consumed by the delivery collaborator.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByRecipient(ctx context.Context, recipientID string, page, limit int) ([]*models.Notification, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
}
