package mongodb

import (
	"context"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure TimeoutRepository implements the interface
var _ repositories.TimeoutRepository = (*TimeoutRepository)(nil)

// TimeoutRepository handles MongoDB operations for Timeout
type TimeoutRepository struct {
	collection *mongo.Collection
}

// NewTimeoutRepository creates a new TimeoutRepository
func NewTimeoutRepository(db *mongo.Database) *TimeoutRepository {
	return &TimeoutRepository{
		collection: db.Collection("timeouts"),
	}
}

// Create inserts a new timeout record
func (r *TimeoutRepository) Create(ctx context.Context, timeout *models.Timeout) error {
	timeout.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, timeout)
	return wrapErr("create timeout", err)
}

// FindByID finds a timeout by ID
func (r *TimeoutRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Timeout, error) {
	var timeout models.Timeout
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&timeout); err != nil {
		return nil, wrapErr("find timeout by id", err)
	}
	return &timeout, nil
}

// FindLatestActiveByConnectionID finds the most recent timeout for the
// connection whose stored active flag is still set. The flag may be stale;
// the Timeout Coordinator applies the lazy expiry correction.
func (r *TimeoutRepository) FindLatestActiveByConnectionID(ctx context.Context, connectionID primitive.ObjectID) (*models.Timeout, error) {
	var timeout models.Timeout
	filter := bson.M{"connectionId": connectionID, "active": true}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startTime", Value: -1}})
	if err := r.collection.FindOne(ctx, filter, findOptions).Decode(&timeout); err != nil {
		return nil, wrapErr("find active timeout by connection", err)
	}
	return &timeout, nil
}

// FindLatestActiveByUserID finds the most recent still-flagged-active
// timeout owned by the user.
func (r *TimeoutRepository) FindLatestActiveByUserID(ctx context.Context, userID string) (*models.Timeout, error) {
	var timeout models.Timeout
	filter := bson.M{"userId": userID, "active": true}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startTime", Value: -1}})
	if err := r.collection.FindOne(ctx, filter, findOptions).Decode(&timeout); err != nil {
		return nil, wrapErr("find active timeout by user", err)
	}
	return &timeout, nil
}

// CountByUserAndDate counts timeouts ever created by the user on the given
// calendar date. Used for daily-limit bookkeeping; deactivated timeouts
// still count.
func (r *TimeoutRepository) CountByUserAndDate(ctx context.Context, userID, dateKey string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "createdDate": dateKey})
	if err != nil {
		return 0, wrapErr("count timeouts", err)
	}
	return count, nil
}

// FindAllActive returns every timeout whose stored flag is still active,
// for the cleanup sweep.
func (r *TimeoutRepository) FindAllActive(ctx context.Context) ([]*models.Timeout, error) {
	var timeouts []*models.Timeout
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, wrapErr("find active timeouts", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &timeouts); err != nil {
		return nil, wrapErr("decode timeouts", err)
	}
	if timeouts == nil {
		timeouts = []*models.Timeout{}
	}
	return timeouts, nil
}

// Deactivate corrects the stored active flag to inactive
func (r *TimeoutRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"active": false},
	})
	if err != nil {
		return wrapErr("deactivate timeout", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "timeout %s not found", id.Hex())
	}
	return nil
}

// Watch emits an event whenever any timeout document changes
func (r *TimeoutRepository) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return watchCollection(ctx, r.collection)
}
