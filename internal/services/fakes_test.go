package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.TransactionRunner      = (*fakeRunner)(nil)
	_ repositories.UserRepository         = (*fakeUserRepo)(nil)
	_ repositories.ConnectionRepository   = (*fakeConnectionRepo)(nil)
	_ repositories.TransactionRepository  = (*fakeTransactionRepo)(nil)
	_ repositories.TimeoutRepository      = (*fakeTimeoutRepo)(nil)
	_ repositories.NotificationRepository = (*fakeNotificationRepo)(nil)
)

// memStore is an in-memory stand-in for the document store. Individual
// operations lock mu; the fake runner serializes whole multi-record
// transactions with txnMu, mirroring the atomicity the real store provides.
type memStore struct {
	mu    sync.Mutex
	txnMu sync.Mutex

	users         map[string]*models.User
	connections   map[primitive.ObjectID]*models.Connection
	transactions  []*models.Transaction
	timeouts      map[primitive.ObjectID]*models.Timeout
	notifications []*models.Notification

	userEvents    broadcaster
	connEvents    broadcaster
	txEvents      broadcaster
	timeoutEvents broadcaster
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*models.User),
		connections: make(map[primitive.ObjectID]*models.Connection),
		timeouts:    make(map[primitive.ObjectID]*models.Timeout),
	}
}

type broadcaster struct {
	mu    sync.Mutex
	chans map[chan struct{}]struct{}
}

func (b *broadcaster) watch(ctx context.Context) (<-chan struct{}, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chans == nil {
		b.chans = make(map[chan struct{}]struct{})
	}
	ch := make(chan struct{}, 1)
	b.chans[ch] = struct{}{}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.chans, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}

func (b *broadcaster) notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.chans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type fakeRunner struct{ store *memStore }

func (r *fakeRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.store.txnMu.Lock()
	defer r.store.txnMu.Unlock()
	return fn(ctx)
}

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	cp := *user
	r.store.users[user.ID] = &cp
	r.store.userEvents.notify()
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, apperrors.NotFound("user " + id + " not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByMatchingCode(ctx context.Context, code string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.MatchingCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("no user holds code " + code)
}

func (r *fakeUserRepo) SetMatchingCode(ctx context.Context, id, code string) error {
	return r.update(id, func(u *models.User) { u.MatchingCode = code })
}

func (r *fakeUserRepo) SetPartner(ctx context.Context, id, partnerID string) error {
	return r.update(id, func(u *models.User) { u.PartnerID = partnerID })
}

func (r *fakeUserRepo) ClearPartner(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.PartnerID = "" })
}

func (r *fakeUserRepo) IncrementPoints(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return apperrors.Validation("points delta must not be zero")
	}
	return r.update(id, func(u *models.User) { u.TotalPointsReceived += delta })
}

func (r *fakeUserRepo) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return r.store.userEvents.watch(ctx)
}

func (r *fakeUserRepo) update(id string, mutate func(u *models.User)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return apperrors.NotFound("user " + id + " not found")
	}
	mutate(u)
	u.UpdatedAt = time.Now()
	r.store.userEvents.notify()
	return nil
}

type fakeConnectionRepo struct{ store *memStore }

func (r *fakeConnectionRepo) Create(ctx context.Context, connection *models.Connection) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	connection.ID = primitive.NewObjectID()
	connection.CreatedAt = time.Now()
	cp := *connection
	r.store.connections[connection.ID] = &cp
	r.store.connEvents.notify()
	return nil
}

func (r *fakeConnectionRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.connections[id]
	if !ok {
		return nil, apperrors.NotFound("connection not found")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConnectionRepo) FindActiveByUserID(ctx context.Context, userID string) (*models.Connection, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.connections {
		if c.IsActive && c.Contains(userID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("no active connection for " + userID)
}

func (r *fakeConnectionRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.connections[id]
	if !ok {
		return apperrors.NotFound("connection not found")
	}
	c.IsActive = false
	r.store.connEvents.notify()
	return nil
}

func (r *fakeConnectionRepo) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return r.store.connEvents.watch(ctx)
}

type fakeTransactionRepo struct{ store *memStore }

func (r *fakeTransactionRepo) Create(ctx context.Context, transaction *models.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	transaction.ID = primitive.NewObjectID()
	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}
	cp := *transaction
	r.store.transactions = append(r.store.transactions, &cp)
	r.store.txEvents.notify()
	return nil
}

func (r *fakeTransactionRepo) FindByUserID(ctx context.Context, userID string) ([]*models.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := []*models.Transaction{}
	// newest first: reverse insertion order
	for i := len(r.store.transactions) - 1; i >= 0; i-- {
		t := r.store.transactions[i]
		if t.SenderID == userID || t.ReceiverID == userID {
			cp := *t
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeTransactionRepo) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return r.store.txEvents.watch(ctx)
}

type fakeTimeoutRepo struct{ store *memStore }

func (r *fakeTimeoutRepo) Create(ctx context.Context, timeout *models.Timeout) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	timeout.ID = primitive.NewObjectID()
	cp := *timeout
	r.store.timeouts[timeout.ID] = &cp
	r.store.timeoutEvents.notify()
	return nil
}

func (r *fakeTimeoutRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Timeout, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.timeouts[id]
	if !ok {
		return nil, apperrors.NotFound("timeout not found")
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTimeoutRepo) FindLatestActiveByConnectionID(ctx context.Context, connectionID primitive.ObjectID) (*models.Timeout, error) {
	return r.findLatestActive(func(t *models.Timeout) bool { return t.ConnectionID == connectionID })
}

func (r *fakeTimeoutRepo) FindLatestActiveByUserID(ctx context.Context, userID string) (*models.Timeout, error) {
	return r.findLatestActive(func(t *models.Timeout) bool { return t.UserID == userID })
}

func (r *fakeTimeoutRepo) findLatestActive(match func(t *models.Timeout) bool) (*models.Timeout, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *models.Timeout
	for _, t := range r.store.timeouts {
		if t.Active && match(t) && (latest == nil || t.StartTime.After(latest.StartTime)) {
			latest = t
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("no active timeout")
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeTimeoutRepo) CountByUserAndDate(ctx context.Context, userID, dateKey string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, t := range r.store.timeouts {
		if t.UserID == userID && t.CreatedDate == dateKey {
			count++
		}
	}
	return count, nil
}

func (r *fakeTimeoutRepo) FindAllActive(ctx context.Context) ([]*models.Timeout, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := []*models.Timeout{}
	for _, t := range r.store.timeouts {
		if t.Active {
			cp := *t
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeTimeoutRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.timeouts[id]
	if !ok {
		return apperrors.NotFound("timeout not found")
	}
	t.Active = false
	r.store.timeoutEvents.notify()
	return nil
}

func (r *fakeTimeoutRepo) Watch(ctx context.Context) (<-chan struct{}, func(), error) {
	return r.store.timeoutEvents.watch(ctx)
}

type fakeNotificationRepo struct{ store *memStore }

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	cp := *notification
	r.store.notifications = append(r.store.notifications, &cp)
	return nil
}

func (r *fakeNotificationRepo) FindByRecipient(ctx context.Context, recipientID string, page, limit int) ([]*models.Notification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := []*models.Notification{}
	for i := len(r.store.notifications) - 1; i >= 0; i-- {
		n := r.store.notifications[i]
		if n.RecipientID == recipientID {
			cp := *n
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeNotificationRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range r.store.notifications {
		if n.ID == id {
			n.Status = status
			return nil
		}
	}
	return apperrors.NotFound("notification not found")
}

// testEnv wires the full service stack over the in-memory store.
type testEnv struct {
	store   *memStore
	users   *fakeUserRepo
	conns   *fakeConnectionRepo
	txs     *fakeTransactionRepo
	tos     *fakeTimeoutRepo
	notifs  *fakeNotificationRepo
	runner  *fakeRunner
	sync    *SyncManager
	clock   *fakeClock
	timeout *TimeoutService
	ledger  *LedgerService
	conn    *ConnectionService
	user    *UserService
	notif   *NotificationService
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEnv() *testEnv {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := newMemStore()
	env := &testEnv{
		store:  store,
		users:  &fakeUserRepo{store: store},
		conns:  &fakeConnectionRepo{store: store},
		txs:    &fakeTransactionRepo{store: store},
		tos:    &fakeTimeoutRepo{store: store},
		notifs: &fakeNotificationRepo{store: store},
		runner: &fakeRunner{store: store},
		clock:  &fakeClock{now: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
	}

	env.sync = NewSyncManager(DefaultRetryPolicy(), nil, logger)
	env.sync.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	env.notif = NewNotificationService(env.notifs, env.conns, logger)
	env.timeout = NewTimeoutService(env.tos, env.sync, env.notif, 30*time.Minute, 1, logger)
	env.timeout.now = env.clock.Now
	env.ledger = NewLedgerService(env.runner, env.txs, env.users, env.conns, env.timeout, env.sync, env.notif, logger)
	env.conn = NewConnectionService(env.runner, env.conns, env.users, env.sync, logger)
	env.user = NewUserService(env.users, env.conns, env.sync, logger)
	return env
}

// addUser seeds a user record directly.
func (env *testEnv) addUser(id, code string) *models.User {
	u := &models.User{ID: id, DisplayName: id, MatchingCode: code}
	_ = env.users.Create(context.Background(), u)
	return u
}

// pair seeds two users and connects them.
func (env *testEnv) pair(a, codeA, b, codeB string) *models.Connection {
	env.addUser(a, codeA)
	env.addUser(b, codeB)
	conn, err := env.conn.CreateConnection(context.Background(), a, b)
	if err != nil {
		panic(err)
	}
	return conn
}

func (env *testEnv) balance(id string) int {
	u, err := env.users.FindByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return u.TotalPointsReceived
}
