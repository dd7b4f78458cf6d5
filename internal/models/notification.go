package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds.
const (
	NotificationKindTransaction = "TRANSACTION"
	NotificationKindTimeout     = "TIMEOUT"
)

// Notification statuses.
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification carries the fields of a just-created Transaction or Timeout
// that a delivery collaborator needs to compose a user-facing message.
// Composing and delivering the message is outside the core; this record is
// the hand-off point.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RecipientID   string             `bson:"recipientId" json:"recipientId"`
	Kind          string             `bson:"kind" json:"kind"`
	SenderID      string             `bson:"senderId,omitempty" json:"senderId,omitempty"`
	Points        int                `bson:"points,omitempty" json:"points,omitempty"`
	Message       string             `bson:"message,omitempty" json:"message,omitempty"`
	TransactionID primitive.ObjectID `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	TimeoutID     primitive.ObjectID `bson:"timeoutId,omitempty" json:"timeoutId,omitempty"`
	ExpiresAt     time.Time          `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
