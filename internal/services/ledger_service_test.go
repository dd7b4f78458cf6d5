package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGivePoints(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	tx, err := env.ledger.GivePoints(ctx, "alice", "bob", 7, "well done", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, tx.Points)
	assert.Equal(t, models.TransactionTypeGive, tx.Type)
	assert.Equal(t, "alice", tx.SenderID)
	assert.Equal(t, "bob", tx.ReceiverID)
	assert.False(t, tx.ID.IsZero())
	assert.Equal(t, 7, env.balance("bob"))
	assert.Equal(t, 0, env.balance("alice"), "sender balance never moves")
}

func TestDeductPoints(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	_, err := env.ledger.GivePoints(ctx, "alice", "bob", 3, "", conn.ID)
	require.NoError(t, err)

	tx, err := env.ledger.DeductPoints(ctx, "alice", "bob", 8, "dishes", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, -8, tx.Points)
	assert.Equal(t, models.TransactionTypeDeduct, tx.Type)
	assert.Equal(t, -5, env.balance("bob"), "balances may go below zero")
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	longMessage := make([]byte, 201)
	for i := range longMessage {
		longMessage[i] = 'x'
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"zero points", func() error {
			_, err := env.ledger.GivePoints(ctx, "alice", "bob", 0, "", conn.ID)
			return err
		}},
		{"points above maximum", func() error {
			_, err := env.ledger.GivePoints(ctx, "alice", "bob", 11, "", conn.ID)
			return err
		}},
		{"deduct above maximum", func() error {
			_, err := env.ledger.DeductPoints(ctx, "alice", "bob", 11, "", conn.ID)
			return err
		}},
		{"message too long", func() error {
			_, err := env.ledger.GivePoints(ctx, "alice", "bob", 5, string(longMessage), conn.ID)
			return err
		}},
		{"self transaction", func() error {
			_, err := env.ledger.GivePoints(ctx, "alice", "alice", 5, "", conn.ID)
			return err
		}},
		{"empty sender", func() error {
			_, err := env.ledger.GivePoints(ctx, "", "bob", 5, "", conn.ID)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		})
	}

	// nothing was written
	history, err := env.ledger.GetTransactionHistory(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 0, env.balance("bob"))
}

func TestCreateTransactionConnectionState(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	env.addUser("carol", "CCCCCC")
	ctx := context.Background()

	t.Run("outsider not on the connection", func(t *testing.T) {
		_, err := env.ledger.GivePoints(ctx, "alice", "carol", 5, "", conn.ID)
		assert.Equal(t, apperrors.CodeConnectionState, apperrors.CodeOf(err))
	})

	t.Run("inactive connection", func(t *testing.T) {
		require.NoError(t, env.conn.DisconnectUsers(ctx, conn.ID))
		_, err := env.ledger.GivePoints(ctx, "alice", "bob", 5, "", conn.ID)
		assert.Equal(t, apperrors.CodeConnectionState, apperrors.CodeOf(err))
	})
}

func TestTransactionHistory(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	first, err := env.ledger.GivePoints(ctx, "alice", "bob", 2, "one", conn.ID)
	require.NoError(t, err)
	second, err := env.ledger.DeductPoints(ctx, "bob", "alice", 3, "two", conn.ID)
	require.NoError(t, err)

	for _, userID := range []string{"alice", "bob"} {
		history, err := env.ledger.GetTransactionHistory(ctx, userID)
		require.NoError(t, err)
		require.Len(t, history, 2, "each entry appears exactly once per party")
		assert.Equal(t, second.ID, history[0].ID, "newest first")
		assert.Equal(t, first.ID, history[1].ID)
	}
}

func TestConcurrentTransactionsComposeBalance(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	const workers = 20
	const perWorker = 5
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		deduct := w%2 == 1
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				var err error
				if deduct {
					_, err = env.ledger.DeductPoints(ctx, "alice", "bob", 2, "", conn.ID)
				} else {
					_, err = env.ledger.GivePoints(ctx, "alice", "bob", 3, "", conn.ID)
				}
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	// half the workers give +3 each, half deduct -2 each
	expected := (workers / 2) * perWorker * (3 - 2)
	assert.Equal(t, expected, env.balance("bob"), "no concurrent update may be lost, regardless of interleaving")

	history, err := env.ledger.GetTransactionHistory(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, history, workers*perWorker)

	sum := 0
	for _, tx := range history {
		sum += tx.Points
	}
	assert.Equal(t, env.balance("bob"), sum, "balance equals the sum of the ledger")
}

func TestTransactionBlockedByActiveTimeout(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	timeout, err := env.timeout.CreateTimeout(ctx, "alice", conn.ID)
	require.NoError(t, err)

	_, err = env.ledger.GivePoints(ctx, "bob", "alice", 4, "", conn.ID)
	assert.Equal(t, apperrors.CodeTimeoutActive, apperrors.CodeOf(err))

	require.NoError(t, env.timeout.ExpireTimeout(ctx, timeout.ID))

	_, err = env.ledger.GivePoints(ctx, "bob", "alice", 4, "", conn.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4, env.balance("alice"))
}

// Walks the happy path end to end: pair via matching code, give, deduct,
// reject an oversized amount, block on a cooldown, then resume after expiry.
func TestLedgerLifecycle(t *testing.T) {
	env := newTestEnv()
	env.addUser("sender", "SEND01")
	env.addUser("receiver", "RECV01")
	ctx := context.Background()

	ownerID, err := env.conn.ValidateMatchingCode(ctx, "RECV01")
	require.NoError(t, err)
	require.Equal(t, "receiver", ownerID)

	conn, err := env.conn.CreateConnection(ctx, "sender", ownerID)
	require.NoError(t, err)

	_, err = env.ledger.GivePoints(ctx, "sender", "receiver", 7, "thanks", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, env.balance("receiver"))

	_, err = env.ledger.DeductPoints(ctx, "sender", "receiver", 8, "oops", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, env.balance("receiver"))

	_, err = env.ledger.GivePoints(ctx, "sender", "receiver", 11, "", conn.ID)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.Equal(t, -1, env.balance("receiver"))

	timeout, err := env.timeout.CreateTimeout(ctx, "receiver", conn.ID)
	require.NoError(t, err)
	_, err = env.ledger.GivePoints(ctx, "sender", "receiver", 1, "", conn.ID)
	assert.Equal(t, apperrors.CodeTimeoutActive, apperrors.CodeOf(err))

	require.NoError(t, env.timeout.ExpireTimeout(ctx, timeout.ID))
	_, err = env.ledger.GivePoints(ctx, "sender", "receiver", 1, "", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.balance("receiver"))
}

func TestObserveTransactions(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := env.ledger.ObserveTransactions(ctx, "bob")
	require.NoError(t, err)
	defer sub.Cancel()

	initial := receiveSnapshot(t, sub.C())
	assert.Empty(t, initial)

	_, err = env.ledger.GivePoints(ctx, "alice", "bob", 5, "", conn.ID)
	require.NoError(t, err)

	updated := receiveSnapshot(t, sub.C())
	require.Len(t, updated, 1)
	assert.Equal(t, 5, updated[0].Points)

	sub.Cancel()
	_, err = env.ledger.GivePoints(ctx, "alice", "bob", 5, "", conn.ID)
	require.NoError(t, err)
	select {
	case _, ok := <-sub.C():
		assert.False(t, ok, "no emission may follow cancellation")
	case <-time.After(100 * time.Millisecond):
	}
}

func receiveSnapshot[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		panic("unreachable")
	}
}

func TestTransactionNotificationHandOff(t *testing.T) {
	env := newTestEnv()
	conn := env.pair("alice", "AAAAAA", "bob", "BBBBBB")
	ctx := context.Background()

	_, err := env.ledger.GivePoints(ctx, "alice", "bob", 6, "nice", conn.ID)
	require.NoError(t, err)

	notifications, err := env.notif.GetNotifications(ctx, "bob", 1, 20)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationKindTransaction, notifications[0].Kind)
	assert.Equal(t, "alice", notifications[0].SenderID)
	assert.Equal(t, 6, notifications[0].Points)
	assert.Equal(t, models.NotificationStatusPending, notifications[0].Status)
}
