package mongodb

import (
	"context"
	"errors"

	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure TransactionRunner implements the interface
var _ repositories.TransactionRunner = (*TransactionRunner)(nil)

// TransactionRunner executes callbacks inside a MongoDB multi-document
// transaction. Repository calls made with the session context join the
// transaction, so a callback that inserts a ledger entry and increments a
// balance commits both writes or neither.
type TransactionRunner struct {
	client *mongo.Client
}

// NewTransactionRunner creates a new TransactionRunner.
func NewTransactionRunner(client *mongo.Client) *TransactionRunner {
	return &TransactionRunner{client: client}
}

// RunTransaction runs fn inside a session transaction. The driver retries
// transient transaction errors internally; errors escaping here are already
// final and get classified into the application taxonomy.
func (r *TransactionRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return wrapErr("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		// fn returns application errors; keep them as-is.
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return wrapErr("transaction", err)
	}
	return nil
}
