package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType distinguishes rewards from penalties.
type TransactionType string

const (
	TransactionTypeGive   TransactionType = "GIVE"
	TransactionTypeDeduct TransactionType = "DEDUCT"
)

// Transaction is an append-only ledger entry. Points are signed: positive
// for GIVE, negative for DEDUCT. Only the receiver's balance moves; the
// sender is never debited. Transactions are immutable once created.
type Transaction struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SenderID     string             `bson:"senderId" json:"senderId"`
	ReceiverID   string             `bson:"receiverId" json:"receiverId"`
	Points       int                `bson:"points" json:"points"`
	Message      string             `bson:"message,omitempty" json:"message,omitempty"`
	ConnectionID primitive.ObjectID `bson:"connectionId" json:"connectionId"`
	Type         TransactionType    `bson:"type" json:"type"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}
