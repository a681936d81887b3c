package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/docstore/memory"
	"github.com/HammerMeetNail/guestlist/internal/models"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewStore returns an empty in-memory store driven by clock.
func NewStore(clock *Clock) *memory.Store {
	s := memory.New()
	if clock != nil {
		s.SetClock(clock.Now)
	}
	return s
}

// Seed writes v, encoded as document fields, under collection/id.
func Seed(t *testing.T, store docstore.Store, collection, id string, v any) {
	t.Helper()
	fields, err := docstore.Encode(v)
	if err != nil {
		t.Fatalf("encoding %s/%s: %v", collection, id, err)
	}
	if err := store.Set(context.Background(), collection, id, fields); err != nil {
		t.Fatalf("seeding %s/%s: %v", collection, id, err)
	}
}

func SeedUser(t *testing.T, store docstore.Store, user models.User) {
	t.Helper()
	if user.AccountType == "" {
		user.AccountType = models.AccountTypePersonal
	}
	if user.HostIDs == nil {
		user.HostIDs = []string{}
	}
	Seed(t, store, "users", user.ID, user)
}

func SeedEvent(t *testing.T, store docstore.Store, event models.Event) {
	t.Helper()
	Seed(t, store, "events", event.ID, event)
}

func SeedHost(t *testing.T, store docstore.Store, host models.Host) {
	t.Helper()
	Seed(t, store, "hosts", host.ID, host)
}

// FailingStore wraps a store and fails selected operations on demand.
type FailingStore struct {
	docstore.Store

	mu       sync.Mutex
	updates  map[[2]string]error
	afterGet map[[2]string]func()
	batchErr error
}

func NewFailingStore(inner docstore.Store) *FailingStore {
	return &FailingStore{
		Store:    inner,
		updates:  make(map[[2]string]error),
		afterGet: make(map[[2]string]func()),
	}
}

// AfterGet runs fn once, right after the next Get of collection/id returns.
// It lets a test change the store between a read and the write that
// depends on it.
func (s *FailingStore) AfterGet(collection, id string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterGet[[2]string{collection, id}] = fn
}

func (s *FailingStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	doc, err := s.Store.Get(ctx, collection, id)

	key := [2]string{collection, id}
	s.mu.Lock()
	fn := s.afterGet[key]
	delete(s.afterGet, key)
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return doc, err
}

// FailUpdate makes Update on collection/id return err. A nil err clears it.
func (s *FailingStore) FailUpdate(collection, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.updates, [2]string{collection, id})
		return
	}
	s.updates[[2]string{collection, id}] = err
}

// FailBatches makes every batch commit return err. A nil err clears it.
func (s *FailingStore) FailBatches(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchErr = err
}

func (s *FailingStore) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	s.mu.Lock()
	err := s.updates[[2]string{collection, id}]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Update(ctx, collection, id, fields)
}

func (s *FailingStore) Batch() docstore.Batch {
	s.mu.Lock()
	err := s.batchErr
	s.mu.Unlock()
	if err != nil {
		return &failingBatch{err: err}
	}
	return s.Store.Batch()
}

type failingBatch struct {
	docstore.Writes
	err error
}

func (b *failingBatch) Commit(ctx context.Context) error {
	return b.err
}
