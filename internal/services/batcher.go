package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
)

// ErrDependentStep matches every *DependentStepError.
var ErrDependentStep = errors.New("dependent step failed after primary commit")

// Step is a write that depends on an already committed primary batch and
// cannot be batched with it, typically because it targets another aggregate.
// Steps must be safe to run more than once.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome reports how far an operation got.
type Outcome struct {
	PrimaryCommitted   bool
	DependentCommitted bool
	Completed          []string
}

// DependentStepError reports that the primary batch committed but a later
// step did not. The primary state is authoritative; Retry runs the failed
// step and the ones after it, never the primary again.
type DependentStepError struct {
	Operation        string
	Step             string
	PrimaryCommitted bool
	Err              error

	batcher   *Batcher
	remaining []Step
}

func (e *DependentStepError) Error() string {
	return fmt.Sprintf("%s: step %s failed after primary commit: %v", e.Operation, e.Step, e.Err)
}

func (e *DependentStepError) Unwrap() error {
	return e.Err
}

func (e *DependentStepError) Is(target error) bool {
	return target == ErrDependentStep
}

// Retry re-runs the failed step and every step after it.
func (e *DependentStepError) Retry(ctx context.Context) (Outcome, error) {
	return e.batcher.Run(ctx, e.Operation, nil, e.remaining...)
}

// Batcher commits a primary batch atomically and then runs dependent steps
// in order, stopping at the first failure.
type Batcher struct {
	store docstore.Store
}

func NewBatcher(store docstore.Store) *Batcher {
	return &Batcher{store: store}
}

// Batch starts a primary batch on the underlying store.
func (b *Batcher) Batch() docstore.Batch {
	return b.store.Batch()
}

// Run commits primary, if any, then runs steps. A primary failure returns
// the wrapped store error with nothing committed. A step failure returns a
// *DependentStepError.
func (b *Batcher) Run(ctx context.Context, operation string, primary docstore.Batch, steps ...Step) (Outcome, error) {
	if primary != nil && primary.Len() > 0 {
		if err := primary.Commit(ctx); err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", operation, err)
		}
	}
	outcome := Outcome{PrimaryCommitted: true}

	for i, step := range steps {
		if err := step.Run(ctx); err != nil {
			return outcome, &DependentStepError{
				Operation:        operation,
				Step:             step.Name,
				PrimaryCommitted: true,
				Err:              err,
				batcher:          b,
				remaining:        steps[i:],
			}
		}
		outcome.Completed = append(outcome.Completed, step.Name)
	}
	outcome.DependentCommitted = true
	return outcome, nil
}
