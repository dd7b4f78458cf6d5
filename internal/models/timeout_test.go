package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutExpiredAt(t *testing.T) {
	start := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	timeout := &Timeout{StartTime: start, Duration: 30 * time.Minute, Active: true}

	assert.Equal(t, start.Add(30*time.Minute), timeout.ExpiresAt())
	assert.False(t, timeout.ExpiredAt(start))
	assert.False(t, timeout.ExpiredAt(start.Add(29*time.Minute)))
	assert.True(t, timeout.ExpiredAt(start.Add(30*time.Minute)), "the expiry instant itself counts as lapsed")
	assert.True(t, timeout.ExpiredAt(start.Add(time.Hour)))
}

func TestConnectionMembership(t *testing.T) {
	conn := &Connection{UserAID: "alice", UserBID: "bob"}

	assert.True(t, conn.Contains("alice"))
	assert.True(t, conn.Contains("bob"))
	assert.False(t, conn.Contains("carol"))

	assert.Equal(t, "bob", conn.PartnerOf("alice"))
	assert.Equal(t, "alice", conn.PartnerOf("bob"))
	assert.Empty(t, conn.PartnerOf("carol"))
}
