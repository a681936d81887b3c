// Package memory provides an in-process docstore.Store used by tests and by
// STORE_DRIVER=memory deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

type record struct {
	fields    docstore.Fields
	createdAt time.Time
	updatedAt time.Time
}

type subscriber struct {
	collection string
	id         string
	fn         func(docstore.Change)
}

// Store keeps documents in maps guarded by a single mutex. Batches are applied
// under the lock, so a commit is atomic with respect to every other call.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]map[string]*record
	subsMu sync.Mutex
	subs   map[int]subscriber
	nextID int
	now    func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs: make(map[string]map[string]*record),
		subs: make(map[int]subscriber),
		now:  time.Now,
	}
}

// SetClock overrides the clock used for document timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return toDocument(collection, id, rec), nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields, opts ...docstore.SetOption) error {
	return s.commit(ctx, []docstore.Write{docstore.SingleWrite(collection, id, fields, opts...)})
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	return s.commit(ctx, []docstore.Write{{Kind: docstore.WriteUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.commit(ctx, []docstore.Write{{Kind: docstore.WriteDelete, Collection: collection, ID: id}})
}

func (s *Store) Query(ctx context.Context, collection string, preds ...docstore.Predicate) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []docstore.Document{}
	for id, rec := range s.docs[collection] {
		if docstore.MatchesAll(rec.fields, preds) {
			docs = append(docs, *toDocument(collection, id, rec))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

// Subscribe registers fn for changes of one document. The subscription ends
// when ctx is done or Close is called.
func (s *Store) Subscribe(ctx context.Context, collection, id string, fn func(docstore.Change)) (docstore.Subscription, error) {
	s.subsMu.Lock()
	subID := s.nextID
	s.nextID++
	s.subs[subID] = subscriber{collection: collection, id: id, fn: fn}
	s.subsMu.Unlock()

	sub := &subscription{store: s, id: subID}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			_ = sub.Close()
		}()
	}
	return sub, nil
}

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

type staged struct {
	fields docstore.Fields
	exists bool
	rec    *record
}

func (s *Store) commit(ctx context.Context, writes []docstore.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	now := s.now().UTC()
	overlay := make(map[[2]string]*staged)
	order := make([][2]string, 0, len(writes))

	for _, w := range writes {
		key := [2]string{w.Collection, w.ID}
		st, seen := overlay[key]
		if !seen {
			st = &staged{}
			if rec, ok := s.docs[w.Collection][w.ID]; ok {
				st.fields, st.exists, st.rec = rec.fields, true, rec
			}
			overlay[key] = st
			order = append(order, key)
		}
		fields, exists, err := docstore.Apply(st.fields, st.exists, w)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		st.fields, st.exists = fields, exists
	}

	changes := make([]docstore.Change, 0, len(order))
	for _, key := range order {
		st := overlay[key]
		collection, id := key[0], key[1]
		if !st.exists {
			if _, ok := s.docs[collection][id]; ok {
				delete(s.docs[collection], id)
			}
			changes = append(changes, docstore.Change{Collection: collection, ID: id, Kind: docstore.ChangeDelete, At: now})
			continue
		}
		if s.docs[collection] == nil {
			s.docs[collection] = make(map[string]*record)
		}
		created := now
		if st.rec != nil {
			created = st.rec.createdAt
		}
		s.docs[collection][id] = &record{fields: st.fields, createdAt: created, updatedAt: now}
		changes = append(changes, docstore.Change{Collection: collection, ID: id, Kind: docstore.ChangeSet, Fields: st.fields.Clone(), At: now})
	}
	s.mu.Unlock()

	s.dispatch(changes)
	return nil
}

func (s *Store) dispatch(changes []docstore.Change) {
	s.subsMu.Lock()
	var targets []func()
	for _, change := range changes {
		for _, sub := range s.subs {
			if sub.collection == change.Collection && sub.id == change.ID {
				fn, c := sub.fn, change
				targets = append(targets, func() { fn(c) })
			}
		}
	}
	s.subsMu.Unlock()

	for _, call := range targets {
		call()
	}
}

func toDocument(collection, id string, rec *record) *docstore.Document {
	return &docstore.Document{
		Collection: collection,
		ID:         id,
		Fields:     rec.fields.Clone(),
		CreatedAt:  rec.createdAt,
		UpdatedAt:  rec.updatedAt,
	}
}

type batch struct {
	docstore.Writes
	store     *Store
	committed bool
}

func (b *batch) Commit(ctx context.Context) error {
	if b.committed {
		return fmt.Errorf("batch already committed")
	}
	if err := b.store.commit(ctx, b.Staged()); err != nil {
		return err
	}
	b.committed = true
	return nil
}

type subscription struct {
	store *Store
	id    int
	once  sync.Once
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.store.subsMu.Lock()
		delete(s.store.subs, s.id)
		s.store.subsMu.Unlock()
	})
	return nil
}
