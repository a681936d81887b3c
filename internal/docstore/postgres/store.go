// Package postgres stores documents as JSONB rows in a single documents table.
// Every write runs inside a transaction that locks the touched rows, so a
// batch is applied all-or-nothing. Committed changes are published to an
// optional docstore.Feed for cross-process subscriptions.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/guestlist/internal/database"
	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/logging"
)

var _ docstore.Store = (*Store)(nil)

type Store struct {
	db     database.DB
	feed   docstore.Feed
	logger *logging.Logger
	now    func() time.Time
}

// New creates a store over db. feed may be nil, in which case Subscribe
// returns docstore.ErrSubscriptionsUnavailable.
func New(db database.DB, feed docstore.Feed, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default
	}
	return &Store{db: db, feed: feed, logger: logger, now: time.Now}
}

// SetClock overrides the clock used for document timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var raw []byte
	doc := &docstore.Document{Collection: collection, ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT fields, created_at, updated_at FROM documents
		 WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	if doc.Fields, err = unmarshalFields(raw); err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return doc, nil
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
	sql, args, err := buildQuery(collection, preds)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var raw []byte
		doc := docstore.Document{Collection: collection}
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		if doc.Fields, err = unmarshalFields(raw); err != nil {
			return nil, fmt.Errorf("scanning %s/%s: %w", collection, doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

func (s *Store) Subscribe(ctx context.Context, collection, id string, fn func(docstore.Change)) (docstore.Subscription, error) {
	if s.feed == nil {
		return nil, docstore.ErrSubscriptionsUnavailable
	}
	return s.feed.Subscribe(ctx, collection, id, fn)
}

type pending struct {
	collection string
	id         string
	fields     docstore.Fields
	exists     bool
	createdAt  time.Time
}

func (s *Store) commit(ctx context.Context, writes []docstore.Write) error {
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	now := s.now().UTC()
	overlay := make(map[[2]string]*pending)
	order := make([]*pending, 0, len(writes))

	for _, w := range writes {
		key := [2]string{w.Collection, w.ID}
		p, seen := overlay[key]
		if !seen {
			p, err = lockDocument(ctx, tx, w.Collection, w.ID)
			if err != nil {
				return err
			}
			overlay[key] = p
			order = append(order, p)
		}
		fields, exists, err := docstore.Apply(p.fields, p.exists, w)
		if err != nil {
			return err
		}
		p.fields, p.exists = fields, exists
	}

	changes := make([]docstore.Change, 0, len(order))
	for _, p := range order {
		if !p.exists {
			if _, err := tx.Exec(ctx,
				"DELETE FROM documents WHERE collection = $1 AND id = $2",
				p.collection, p.id,
			); err != nil {
				return fmt.Errorf("deleting %s/%s: %w", p.collection, p.id, err)
			}
			changes = append(changes, docstore.Change{Collection: p.collection, ID: p.id, Kind: docstore.ChangeDelete, At: now})
			continue
		}

		data, err := json.Marshal(p.fields)
		if err != nil {
			return fmt.Errorf("encoding %s/%s: %w", p.collection, p.id, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (collection, id, fields, created_at, updated_at)
			 VALUES ($1, $2, $3::jsonb, $4, $4)
			 ON CONFLICT (collection, id)
			 DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`,
			p.collection, p.id, string(data), now,
		); err != nil {
			return fmt.Errorf("writing %s/%s: %w", p.collection, p.id, err)
		}
		changes = append(changes, docstore.Change{Collection: p.collection, ID: p.id, Kind: docstore.ChangeSet, Fields: p.fields, At: now})
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit writes: %w", err)
	}
	committed = true

	s.publish(ctx, changes)
	return nil
}

func lockDocument(ctx context.Context, tx database.Tx, collection, id string) (*pending, error) {
	p := &pending{collection: collection, id: id}
	var raw []byte
	err := tx.QueryRow(ctx,
		`SELECT fields, created_at FROM documents
		 WHERE collection = $1 AND id = $2
		 FOR UPDATE`,
		collection, id,
	).Scan(&raw, &p.createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locking %s/%s: %w", collection, id, err)
	}
	if p.fields, err = unmarshalFields(raw); err != nil {
		return nil, fmt.Errorf("locking %s/%s: %w", collection, id, err)
	}
	p.exists = true
	return p, nil
}

func (s *Store) publish(ctx context.Context, changes []docstore.Change) {
	if s.feed == nil {
		return
	}
	for _, change := range changes {
		if err := s.feed.Publish(ctx, change); err != nil {
			s.logger.Warn("Failed to publish document change", map[string]interface{}{
				"collection": change.Collection,
				"id":         change.ID,
				"error":      err.Error(),
			})
		}
	}
}

func unmarshalFields(raw []byte) (docstore.Fields, error) {
	fields := docstore.Fields{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	return fields, nil
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
