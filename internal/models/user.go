package models

import (
	"time"
)

// User represents a participant in a pairing. The ID is the stable user id
// supplied by the external authentication provider; the core performs no
// identity verification of its own.
type User struct {
	ID                  string    `bson:"_id" json:"id"`
	DisplayName         string    `bson:"displayName" json:"displayName"`
	MatchingCode        string    `bson:"matchingCode" json:"matchingCode"`
	PartnerID           string    `bson:"partnerId,omitempty" json:"partnerId,omitempty"`
	TotalPointsReceived int       `bson:"totalPointsReceived" json:"totalPointsReceived"`
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updatedAt"`
}
