package mongodb

import (
	"context"
	"time"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure ConnectionRepository implements the interface
var _ repositories.ConnectionRepository = (*ConnectionRepository)(nil)

// ConnectionRepository handles MongoDB operations for Connection
type ConnectionRepository struct {
	collection *mongo.Collection
}

// NewConnectionRepository creates a new ConnectionRepository
func NewConnectionRepository(db *mongo.Database) *ConnectionRepository {
	return &ConnectionRepository{
		collection: db.Collection("connections"),
	}
}

// Create inserts a new connection
func (r *ConnectionRepository) Create(ctx context.Context, connection *models.Connection) error {
	connection.ID = primitive.NewObjectID()
	connection.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, connection)
	return wrapErr("create connection", err)
}

// FindByID finds a connection by ID
func (r *ConnectionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	var connection models.Connection
	filter := bson.M{"_id": id}
	if err := r.collection.FindOne(ctx, filter).Decode(&connection); err != nil {
		return nil, wrapErr("find connection by id", err)
	}
	return &connection, nil
}

// FindActiveByUserID finds the user's active connection. The user may be
// stored as either member of the pair, so the lookup is a single $or query
// merging both sides; callers never see the two-sided mechanics.
func (r *ConnectionRepository) FindActiveByUserID(ctx context.Context, userID string) (*models.Connection, error) {
	var connection models.Connection
	filter := bson.M{
		"isActive": true,
		"$or": []bson.M{
			{"userAId": userID},
			{"userBId": userID},
		},
	}
	if err := r.collection.FindOne(ctx, filter).Decode(&connection); err != nil {
		return nil, wrapErr("find active connection", err)
	}
	return &connection, nil
}

// Deactivate flips a connection inactive. Connections are never hard-deleted.
func (r *ConnectionRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isActive": false},
	})
	if err != nil {
		return wrapErr("deactivate connection", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "connection %s not found", id.Hex())
	}
	return nil
}

// Watch emits an event whenever any connection document changes
func (r *ConnectionRepository) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return watchCollection(ctx, r.collection)
}
