package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/pairpoints/pairpoints-backend/pkg/streams"
	"github.com/sirupsen/logrus"
)

// SyncStatus is the connectivity and pending-write state exposed to clients.
type SyncStatus string

const (
	SyncStatusSynced      SyncStatus = "SYNCED"
	SyncStatusSyncing     SyncStatus = "SYNCING"
	SyncStatusPendingSync SyncStatus = "PENDING_SYNC"
	SyncStatusError       SyncStatus = "ERROR"
	SyncStatusOffline     SyncStatus = "OFFLINE"
)

// ConnectivityMonitor reports whether the backing store is reachable.
type ConnectivityMonitor interface {
	Online(ctx context.Context) bool
}

// RetryPolicy configures retry behavior for store operations.
type RetryPolicy struct {
	// MaxAttempts bounds the number of tries for a single operation.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay between consecutive retries.
	BackoffMultiplier float64
	// Jitter randomizes each delay by up to this fraction (0.0 to 1.0).
	Jitter float64
	// OperationTimeout bounds a single attempt.
	OperationTimeout time.Duration
	// OfflineRecheck is how often connectivity is re-checked while offline.
	// Waiting out an offline period does not consume attempts.
	OfflineRecheck time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       4,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		OperationTimeout:  15 * time.Second,
		OfflineRecheck:    2 * time.Second,
	}
}

// SyncManager wraps every store mutation with the retry policy and keeps the
// SYNCED/SYNCING/PENDING_SYNC/ERROR/OFFLINE status machine. Retryable
// failures are retried with exponential backoff; non-retryable failures
// propagate to the caller after a single attempt. No operation blocks
// indefinitely: attempts are bounded in count and each attempt is bounded by
// OperationTimeout.
type SyncManager struct {
	policy  RetryPolicy
	monitor ConnectivityMonitor
	log     *logrus.Entry

	mu      sync.Mutex
	status  SyncStatus
	pending int
	subs    map[*streams.Subscription[SyncStatus]]struct{}

	// sleep is swapped out by tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSyncManager creates a SyncManager. The monitor may be nil, in which
// case connectivity is assumed.
func NewSyncManager(policy RetryPolicy, monitor ConnectivityMonitor, logger *logrus.Logger) *SyncManager {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	return &SyncManager{
		policy:  policy,
		monitor: monitor,
		log:     logger.WithField("component", "sync"),
		status:  SyncStatusSynced,
		subs:    make(map[*streams.Subscription[SyncStatus]]struct{}),
		sleep:   sleepCtx,
	}
}

// Status returns the current sync status.
func (m *SyncManager) Status() SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ObserveStatus subscribes to status changes. The current status is
// delivered first. Cancel the subscription to stop delivery.
func (m *SyncManager) ObserveStatus() *streams.Subscription[SyncStatus] {
	sub := streams.NewSubscription[SyncStatus](8)
	m.mu.Lock()
	m.subs[sub] = struct{}{}
	current := m.status
	m.mu.Unlock()
	sub.TryPublish(current)
	return sub
}

// Execute runs fn under the retry policy. Attempts are skipped (not
// consumed) while connectivity is known to be down. A pass that exhausts its
// budget on transient failures leaves the machine in PENDING_SYNC rather
// than blocking; a non-retryable failure moves it to ERROR and propagates
// immediately.
func (m *SyncManager) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	m.beginPass()

	var lastErr error
	attempt := 0
	for attempt < m.policy.MaxAttempts {
		if m.monitor != nil && !m.monitor.Online(ctx) {
			m.setStatus(SyncStatusOffline)
			if err := m.sleep(ctx, m.policy.OfflineRecheck); err != nil {
				return m.endPass(op, apperrors.TransientStore(op+": cancelled while offline", err))
			}
			continue
		}
		m.setStatus(SyncStatusSyncing)

		attemptCtx, cancel := context.WithTimeout(ctx, m.policy.OperationTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return m.endPass(op, nil)
		}
		lastErr = err
		if !apperrors.IsRetryable(err) {
			return m.endPass(op, err)
		}

		attempt++
		if attempt >= m.policy.MaxAttempts {
			break
		}
		delay := m.backoff(attempt)
		m.log.WithFields(logrus.Fields{"op": op, "attempt": attempt, "delay": delay}).
			WithError(err).Warn("retrying transient store failure")
		if serr := m.sleep(ctx, delay); serr != nil {
			lastErr = apperrors.TransientStore(op+": cancelled during backoff", serr)
			break
		}
	}
	return m.endPass(op, lastErr)
}

func (m *SyncManager) beginPass() {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()
	m.setStatus(SyncStatusSyncing)
}

// endPass settles the status for a finished pass and returns its error.
func (m *SyncManager) endPass(op string, err error) error {
	m.mu.Lock()
	m.pending--
	idle := m.pending == 0
	m.mu.Unlock()

	switch {
	case err == nil:
		if idle {
			m.setStatus(SyncStatusSynced)
		}
	case apperrors.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded):
		// budget exhausted with the write still outstanding
		m.setStatus(SyncStatusPendingSync)
		m.log.WithField("op", op).WithError(err).Error("sync pass exhausted retry budget")
	default:
		m.setStatus(SyncStatusError)
	}
	return err
}

func (m *SyncManager) setStatus(status SyncStatus) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	subs := make([]*streams.Subscription[SyncStatus], 0, len(m.subs))
	for sub := range m.subs {
		if sub.Cancelled() {
			delete(m.subs, sub)
			continue
		}
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.TryPublish(status)
	}
}

// backoff computes the delay before the given retry attempt (1-based).
func (m *SyncManager) backoff(attempt int) time.Duration {
	delay := float64(m.policy.InitialBackoff) * math.Pow(m.policy.BackoffMultiplier, float64(attempt-1))
	if max := float64(m.policy.MaxBackoff); delay > max {
		delay = max
	}
	if m.policy.Jitter > 0 {
		delay += delay * m.policy.Jitter * (2*rand.Float64() - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
