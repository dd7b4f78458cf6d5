package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateKeyFormat is the calendar-date key used for daily-limit bookkeeping.
const DateKeyFormat = "2006-01-02"

// Timeout is a cooldown window during which point transactions for a
// connection are disallowed. The stored Active flag is a cache: the logical
// state is derived from StartTime and Duration, and readers opportunistically
// correct the flag when they find it stale.
type Timeout struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       string             `bson:"userId" json:"userId"`
	ConnectionID primitive.ObjectID `bson:"connectionId" json:"connectionId"`
	StartTime    time.Time          `bson:"startTime" json:"startTime"`
	Duration     time.Duration      `bson:"duration" json:"duration"`
	Active       bool               `bson:"active" json:"active"`
	CreatedDate  string             `bson:"createdDate" json:"createdDate"`
}

// ExpiresAt returns the instant the cooldown lapses.
func (t *Timeout) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Duration)
}

// ExpiredAt reports whether the cooldown has logically lapsed at the given
// instant, regardless of the stored Active flag.
func (t *Timeout) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}
