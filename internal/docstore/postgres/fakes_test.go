package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/HammerMeetNail/guestlist/internal/database"
	"github.com/HammerMeetNail/guestlist/internal/docstore"
)

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 { return t.rowsAffected }

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scanFunc == nil {
		return nil
	}
	return r.scanFunc(dest...)
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return r.err }

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (database.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (database.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) database.Row
	BeginFunc    func(ctx context.Context) (database.Tx, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (database.CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return fakeCommandTag{}, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return fakeRow{}
}

func (f *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	return &fakeTx{}, nil
}

type fakeTx struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (database.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (database.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) database.Row
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (database.CommandTag, error) {
	if t.ExecFunc != nil {
		return t.ExecFunc(ctx, sql, args...)
	}
	return fakeCommandTag{rowsAffected: 1}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if t.QueryFunc != nil {
		return t.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	if t.QueryRowFunc != nil {
		return t.QueryRowFunc(ctx, sql, args...)
	}
	return fakeRow{}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	return nil
}

type fakeFeed struct {
	published []docstore.Change
	err       error
}

func (f *fakeFeed) Publish(ctx context.Context, change docstore.Change) error {
	f.published = append(f.published, change)
	return f.err
}

func (f *fakeFeed) Subscribe(ctx context.Context, collection, id string, fn func(docstore.Change)) (docstore.Subscription, error) {
	return nil, nil
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("scan: column %d is %T, not string", i, v)
			}
			*d = s
		case *[]byte:
			switch b := v.(type) {
			case []byte:
				*d = b
			case string:
				*d = []byte(b)
			default:
				return fmt.Errorf("scan: column %d is %T, not bytes", i, v)
			}
		case *time.Time:
			t, ok := v.(time.Time)
			if !ok {
				return fmt.Errorf("scan: column %d is %T, not time", i, v)
			}
			*d = t
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}
