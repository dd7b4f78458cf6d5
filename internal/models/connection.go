package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connection is an active pairing between exactly two users. The pair is
// unordered: a user may be stored as either member. Connections are
// deactivated on disconnect, never deleted.
type Connection struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserAID   string             `bson:"userAId" json:"userAId"`
	UserBID   string             `bson:"userBId" json:"userBId"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Contains reports whether the given user is a member of the pair.
func (c *Connection) Contains(userID string) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// PartnerOf returns the other member of the pair, or "" when the given user
// is not a member.
func (c *Connection) PartnerOf(userID string) string {
	switch userID {
	case c.UserAID:
		return c.UserBID
	case c.UserBID:
		return c.UserAID
	}
	return ""
}
