package mongodb

import (
	"context"
	"time"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure UserRepository implements the interface
var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository handles MongoDB operations for User
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, user)
	return wrapErr("create user", err)
}

// FindByID finds a user by their external id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	filter := bson.M{"_id": id}
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, wrapErr("find user by id", err)
	}
	return &user, nil
}

// FindByMatchingCode finds a user by their matching code
func (r *UserRepository) FindByMatchingCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	filter := bson.M{"matchingCode": code}
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, wrapErr("find user by matching code", err)
	}
	return &user, nil
}

// SetMatchingCode replaces the user's matching code
func (r *UserRepository) SetMatchingCode(ctx context.Context, id, code string) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{"matchingCode": code, "updatedAt": time.Now()},
	}, "set matching code")
}

// SetPartner records the user's current partner
func (r *UserRepository) SetPartner(ctx context.Context, id, partnerID string) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{"partnerId": partnerID, "updatedAt": time.Now()},
	}, "set partner")
}

// ClearPartner removes the user's partner reference
func (r *UserRepository) ClearPartner(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.M{
		"$unset": bson.M{"partnerId": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	}, "clear partner")
}

// IncrementPoints atomically adjusts the user's received-points balance.
// The delta may be negative; balances are allowed to go below zero. The
// update composes ($inc, not $set) so concurrent increments never lose.
func (r *UserRepository) IncrementPoints(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return apperrors.Validation("points delta must not be zero")
	}
	return r.updateOne(ctx, id, bson.M{
		"$inc": bson.M{"totalPointsReceived": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	}, "increment points")
}

// Watch emits an event whenever any user document changes
func (r *UserRepository) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return watchCollection(ctx, r.collection)
}

func (r *UserRepository) updateOne(ctx context.Context, id string, update bson.M, op string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrapErr(op, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "%s: user %s not found", op, id)
	}
	return nil
}
