package mongodb

import (
	"context"
	"time"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure TransactionRepository implements the interface
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository handles MongoDB operations for ledger entries
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("transactions"),
	}
}

// Create appends a new ledger entry. Entries are immutable: the repository
// exposes no update or delete for them.
func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	transaction.ID = primitive.NewObjectID()
	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, transaction)
	return wrapErr("create transaction", err)
}

// FindByUserID finds all transactions where the user is sender or receiver,
// newest first.
func (r *TransactionRepository) FindByUserID(ctx context.Context, userID string) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	filter := bson.M{
		"$or": []bson.M{
			{"senderId": userID},
			{"receiverId": userID},
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, wrapErr("find transactions", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &transactions); err != nil {
		return nil, wrapErr("decode transactions", err)
	}

	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	return transactions, nil
}

// Watch emits an event whenever any transaction is appended
func (r *TransactionRepository) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return watchCollection(ctx, r.collection)
}
