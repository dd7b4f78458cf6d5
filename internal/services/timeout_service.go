package services

import (
	"context"
	"time"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/internal/validation"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/pairpoints/pairpoints-backend/pkg/streams"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTimeoutDuration is the cooldown length when none is configured.
const DefaultTimeoutDuration = 30 * time.Minute

// DefaultDailyTimeoutLimit caps timeouts created per user per calendar date.
const DefaultDailyTimeoutLimit = 1

// TimeoutNotifier receives just-created timeouts for the notification
// hand-off. Failures are logged, never surfaced to the requesting caller.
type TimeoutNotifier interface {
	TimeoutCreated(ctx context.Context, timeout *models.Timeout) error
}

// TimeoutService runs the cooldown state machine: Available → Active →
// Expired → Used, back to Available on the next calendar date. A timeout's
// logical state is a pure function of time; the stored active flag is a
// cache that read paths correct lazily (ExpireIfElapsed) and that
// CleanupExpiredTimeouts sweeps in bulk.
type TimeoutService struct {
	timeoutRepo repositories.TimeoutRepository
	sync        *SyncManager
	notifier    TimeoutNotifier
	duration    time.Duration
	dailyLimit  int
	log         *logrus.Entry

	// now is swapped out by tests
	now func() time.Time
}

// NewTimeoutService creates a new TimeoutService. notifier may be nil.
func NewTimeoutService(timeoutRepo repositories.TimeoutRepository, syncManager *SyncManager, notifier TimeoutNotifier, duration time.Duration, dailyLimit int, logger *logrus.Logger) *TimeoutService {
	if duration <= 0 {
		duration = DefaultTimeoutDuration
	}
	if dailyLimit < 1 {
		dailyLimit = DefaultDailyTimeoutLimit
	}
	return &TimeoutService{
		timeoutRepo: timeoutRepo,
		sync:        syncManager,
		notifier:    notifier,
		duration:    duration,
		dailyLimit:  dailyLimit,
		log:         logger.WithField("component", "timeouts"),
		now:         time.Now,
	}
}

// CanRequestTimeout reports whether the user may start a cooldown right now:
// fewer than the daily limit created today, and no unexpired cooldown of
// their own still running.
func (s *TimeoutService) CanRequestTimeout(ctx context.Context, userID string) (bool, error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return false, err
	}
	count, err := s.GetTodayTimeoutCount(ctx, userID)
	if err != nil {
		return false, err
	}
	if count >= int64(s.dailyLimit) {
		return false, nil
	}
	active, err := s.activeUnexpiredByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return active == nil, nil
}

// GetTodayTimeoutCount counts timeouts the user created on today's calendar
// date, including ones that have since expired.
func (s *TimeoutService) GetTodayTimeoutCount(ctx context.Context, userID string) (int64, error) {
	return s.timeoutRepo.CountByUserAndDate(ctx, userID, s.now().Format(models.DateKeyFormat))
}

// CreateTimeout starts a cooldown for the connection, owned by the
// requesting user. Eligibility is re-checked immediately before the insert.
//
// The daily-limit check and the insert are deliberately NOT one storage
// transaction: two simultaneous requests from the same user can slip
// through the window. This is an accepted narrow race; the check directly
// preceding the write keeps the window minimal.
func (s *TimeoutService) CreateTimeout(ctx context.Context, userID string, connectionID primitive.ObjectID) (*models.Timeout, error) {
	if err := validation.UserID(userID).Err(); err != nil {
		return nil, err
	}

	var created *models.Timeout
	err := s.execute(ctx, "timeout.create", func(ctx context.Context) error {
		now := s.now()
		today := now.Format(models.DateKeyFormat)

		count, err := s.timeoutRepo.CountByUserAndDate(ctx, userID, today)
		if err != nil {
			return err
		}
		if count >= int64(s.dailyLimit) {
			return apperrors.Newf(apperrors.CodeDailyLimitExceeded,
				"user %s already used %d of %d timeouts today", userID, count, s.dailyLimit)
		}

		if existing, err := s.activeUnexpiredByConnection(ctx, connectionID); err != nil {
			return err
		} else if existing != nil {
			return apperrors.TimeoutActive("a cooldown is already running for this connection")
		}

		t := &models.Timeout{
			UserID:       userID,
			ConnectionID: connectionID,
			StartTime:    now,
			Duration:     s.duration,
			Active:       true,
			CreatedDate:  today,
		}
		if err := s.timeoutRepo.Create(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if nerr := s.notifier.TimeoutCreated(ctx, created); nerr != nil {
			s.log.WithError(nerr).WithField("timeoutId", created.ID.Hex()).
				Warn("timeout notification hand-off failed")
		}
	}
	s.log.WithFields(logrus.Fields{
		"userId": userID, "connectionId": connectionID.Hex(), "until": created.ExpiresAt(),
	}).Info("cooldown started")
	return created, nil
}

// GetActiveTimeout returns the connection's running cooldown, or nil when
// none is running. A stored-active record whose time has elapsed is
// corrected to inactive as a side effect of this read and reported as nil.
func (s *TimeoutService) GetActiveTimeout(ctx context.Context, connectionID primitive.ObjectID) (*models.Timeout, error) {
	return s.activeUnexpiredByConnection(ctx, connectionID)
}

// ExpireIfElapsed is the lazy expiry correction: when the timeout has
// logically lapsed but its stored flag still says active, the flag is
// corrected in the store. Reports whether a correction was made. Isolated
// here so the read-triggered mutation is visible and testable on its own.
func (s *TimeoutService) ExpireIfElapsed(ctx context.Context, t *models.Timeout) (bool, error) {
	if !t.Active || !t.ExpiredAt(s.now()) {
		return false, nil
	}
	if err := s.timeoutRepo.Deactivate(ctx, t.ID); err != nil {
		return false, err
	}
	t.Active = false
	s.log.WithField("timeoutId", t.ID.Hex()).Debug("corrected stale active flag")
	return true, nil
}

// ExpireTimeout explicitly ends a cooldown before its time is up, for a
// confirmed partner-initiated early termination.
func (s *TimeoutService) ExpireTimeout(ctx context.Context, id primitive.ObjectID) error {
	return s.execute(ctx, "timeout.expire", func(ctx context.Context) error {
		if _, err := s.timeoutRepo.FindByID(ctx, id); err != nil {
			return err
		}
		return s.timeoutRepo.Deactivate(ctx, id)
	})
}

// CleanupExpiredTimeouts sweeps every stale active flag at once, for callers
// that need authoritative correction without waiting for a read to trigger
// it. Returns the number of corrections. Scheduling the sweep is the
// caller's responsibility.
func (s *TimeoutService) CleanupExpiredTimeouts(ctx context.Context) (int, error) {
	timeouts, err := s.timeoutRepo.FindAllActive(ctx)
	if err != nil {
		return 0, err
	}
	corrected := 0
	for _, t := range timeouts {
		fixed, err := s.ExpireIfElapsed(ctx, t)
		if err != nil {
			return corrected, err
		}
		if fixed {
			corrected++
		}
	}
	if corrected > 0 {
		s.log.WithField("corrected", corrected).Info("swept expired timeouts")
	}
	return corrected, nil
}

// SynchronizePartnerTimeoutState re-applies the expiry correction for a
// connection on demand, reconciling a partner whose live subscription missed
// an update. Returns whether a cooldown is still running.
func (s *TimeoutService) SynchronizePartnerTimeoutState(ctx context.Context, connectionID primitive.ObjectID) (bool, error) {
	t, err := s.activeUnexpiredByConnection(ctx, connectionID)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// ObserveActiveTimeout streams the connection's current cooldown: the full
// record while one is running, nil otherwise. Re-emits on storage changes
// and wakes itself at the expiry instant so observers see the lapse without
// any write occurring.
func (s *TimeoutService) ObserveActiveTimeout(ctx context.Context, connectionID primitive.ObjectID) (*streams.Subscription[*models.Timeout], error) {
	events, stop, err := s.timeoutRepo.Watch(ctx)
	if err != nil {
		return nil, err
	}
	sub := streams.NewSubscription[*models.Timeout](1)
	go s.pump(ctx, sub, events, stop, func(ctx context.Context) (*models.Timeout, time.Time, error) {
		t, err := s.activeUnexpiredByConnection(ctx, connectionID)
		var expiry time.Time
		if t != nil {
			expiry = t.ExpiresAt()
		}
		return t, expiry, err
	})
	return sub, nil
}

// ObserveTimeoutStatus streams a single bool: "some active, unexpired
// cooldown exists for this connection". Consecutive equal values are not
// re-emitted.
func (s *TimeoutService) ObserveTimeoutStatus(ctx context.Context, connectionID primitive.ObjectID) (*streams.Subscription[bool], error) {
	events, stop, err := s.timeoutRepo.Watch(ctx)
	if err != nil {
		return nil, err
	}
	sub := streams.NewSubscription[bool](1)
	go func() {
		defer stop()
		emitted := false
		last := false
		for {
			t, err := s.activeUnexpiredByConnection(ctx, connectionID)
			if err != nil {
				s.log.WithError(err).Warn("timeout status re-derivation failed")
			} else {
				active := t != nil
				if !emitted || active != last {
					if !sub.Publish(active) {
						return
					}
					emitted = true
					last = active
				}
			}
			var expiryWake <-chan time.Time
			var timer *time.Timer
			if t != nil {
				timer = time.NewTimer(t.ExpiresAt().Sub(s.now()) + 50*time.Millisecond)
				expiryWake = timer.C
			}
			select {
			case <-ctx.Done():
				stopTimer(timer)
				return
			case <-sub.Done():
				stopTimer(timer)
				return
			case _, ok := <-events:
				stopTimer(timer)
				if !ok {
					return
				}
			case <-expiryWake:
			}
		}
	}()
	return sub, nil
}

// pump re-derives and re-emits a snapshot on every change event, and also at
// the snapshot's expiry instant when one applies.
func (s *TimeoutService) pump(ctx context.Context, sub *streams.Subscription[*models.Timeout], events <-chan struct{}, stop func(), derive func(ctx context.Context) (*models.Timeout, time.Time, error)) {
	defer stop()
	for {
		snapshot, expiry, err := derive(ctx)
		if err != nil {
			s.log.WithError(err).Warn("timeout snapshot re-derivation failed")
		} else if !sub.Publish(snapshot) {
			return
		}
		var expiryWake <-chan time.Time
		var timer *time.Timer
		if !expiry.IsZero() {
			timer = time.NewTimer(expiry.Sub(s.now()) + 50*time.Millisecond)
			expiryWake = timer.C
		}
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-sub.Done():
			stopTimer(timer)
			return
		case _, ok := <-events:
			stopTimer(timer)
			if !ok {
				return
			}
		case <-expiryWake:
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// activeUnexpiredByConnection reads the latest stored-active timeout for the
// connection and applies the lazy correction.
func (s *TimeoutService) activeUnexpiredByConnection(ctx context.Context, connectionID primitive.ObjectID) (*models.Timeout, error) {
	t, err := s.timeoutRepo.FindLatestActiveByConnectionID(ctx, connectionID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.correct(ctx, t)
}

func (s *TimeoutService) activeUnexpiredByUser(ctx context.Context, userID string) (*models.Timeout, error) {
	t, err := s.timeoutRepo.FindLatestActiveByUserID(ctx, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.correct(ctx, t)
}

func (s *TimeoutService) correct(ctx context.Context, t *models.Timeout) (*models.Timeout, error) {
	expired, err := s.ExpireIfElapsed(ctx, t)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, nil
	}
	return t, nil
}

func (s *TimeoutService) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.sync == nil {
		return fn(ctx)
	}
	return s.sync.Execute(ctx, op, fn)
}
