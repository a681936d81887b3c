// Package docstore defines the document database boundary the state machines
// are written against: keyed documents grouped in collections, atomic
// multi-document batches, equality queries and per-document change
// subscriptions.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrSubscriptionsUnavailable indicates the store has no change feed configured.
	ErrSubscriptionsUnavailable = errors.New("change subscriptions are not configured")
)

// Fields holds the JSON-compatible top-level values of a document.
type Fields map[string]any

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Fields(t).Clone())
	case Fields:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Document is one stored document.
type Document struct {
	Collection string
	ID         string
	Fields     Fields
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SetOption configures a Set write.
type SetOption func(*setOptions)

type setOptions struct {
	merge bool
}

// Merge makes Set overwrite only the given top-level fields and keep the rest.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// WriteKind identifies a staged write.
type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteSet:
		return "set"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Write is one staged mutation inside a batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     Fields
	Merge      bool
}

// Batch stages writes and commits them all or none.
type Batch interface {
	Set(collection, id string, fields Fields, opts ...SetOption)
	Update(collection, id string, fields Fields)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// Store is the document database consumed by the services.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, preds ...Predicate) ([]Document, error)
	Batch() Batch
	Subscribe(ctx context.Context, collection, id string, fn func(Change)) (Subscription, error)
}

// ChangeKind is the kind of a committed change.
type ChangeKind string

const (
	ChangeSet    ChangeKind = "set"
	ChangeDelete ChangeKind = "delete"
)

// Change describes a committed mutation of one document.
type Change struct {
	Collection string     `json:"collection"`
	ID         string     `json:"id"`
	Kind       ChangeKind `json:"kind"`
	Fields     Fields     `json:"fields,omitempty"`
	At         time.Time  `json:"at"`
}

// Subscription is an active change subscription.
type Subscription interface {
	Close() error
}

// Feed fans committed changes out to subscribers, possibly across processes.
type Feed interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(ctx context.Context, collection, id string, fn func(Change)) (Subscription, error)
}

// Writes collects staged writes. Backends embed it and implement Commit.
type Writes struct {
	list []Write
}

func (w *Writes) Set(collection, id string, fields Fields, opts ...SetOption) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	w.list = append(w.list, Write{Kind: WriteSet, Collection: collection, ID: id, Fields: fields, Merge: o.merge})
}

func (w *Writes) Update(collection, id string, fields Fields) {
	w.list = append(w.list, Write{Kind: WriteUpdate, Collection: collection, ID: id, Fields: fields})
}

func (w *Writes) Delete(collection, id string) {
	w.list = append(w.list, Write{Kind: WriteDelete, Collection: collection, ID: id})
}

func (w *Writes) Len() int {
	return len(w.list)
}

// Staged returns the staged writes in order.
func (w *Writes) Staged() []Write {
	return w.list
}

// SingleWrite builds the Write for a direct Set call.
func SingleWrite(collection, id string, fields Fields, opts ...SetOption) Write {
	var w Writes
	w.Set(collection, id, fields, opts...)
	return w.list[0]
}
