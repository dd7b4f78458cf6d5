package mongodb

import (
	"context"
	"errors"

	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/mongo"
)

// wrapErr classifies a driver error into the application taxonomy. Missing
// documents become NotFound; network problems, deadlines and transient
// transaction failures become TransientStoreError so the Sync/Retry layer
// will retry them; anything else is Unknown.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.Wrap(apperrors.CodeNotFound, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return apperrors.TransientStore(op, err)
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.HasErrorLabel("TransientTransactionError") || cmdErr.HasErrorLabel("UnknownTransactionCommitResult")) {
		return apperrors.TransientStore(op, err)
	}
	return apperrors.Unknown(op, err)
}
