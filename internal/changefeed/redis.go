// Package changefeed distributes committed document changes over Redis
// pub/sub so subscribers in any process see writes made by any other.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/logging"
)

const DefaultPrefix = "docs"

// Client is the subset of the go-redis client the feed needs.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

var _ docstore.Feed = (*RedisFeed)(nil)

type RedisFeed struct {
	client Client
	prefix string
	logger *logging.Logger
}

func NewRedisFeed(client Client, prefix string, logger *logging.Logger) *RedisFeed {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = logging.Default
	}
	return &RedisFeed{client: client, prefix: prefix, logger: logger}
}

// Channel returns the pub/sub channel carrying changes of one document.
func (f *RedisFeed) Channel(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", f.prefix, collection, id)
}

func (f *RedisFeed) Publish(ctx context.Context, change docstore.Change) error {
	payload, err := encodeChange(change)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.Channel(change.Collection, change.ID), payload).Err(); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription, then delivers
// changes to fn from a single goroutine until ctx is done or Close is called.
func (f *RedisFeed) Subscribe(ctx context.Context, collection, id string, fn func(docstore.Change)) (docstore.Subscription, error) {
	channel := f.Channel(collection, id)
	pubsub := f.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	sub := &subscription{pubsub: pubsub, done: make(chan struct{})}
	messages := pubsub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case <-sub.done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				change, err := decodeChange([]byte(msg.Payload))
				if err != nil {
					f.logger.Warn("Dropping malformed change", map[string]interface{}{
						"channel": channel,
						"error":   err.Error(),
					})
					continue
				}
				fn(change)
			}
		}
	}()
	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.pubsub.Close()
	})
	return s.err
}

func encodeChange(change docstore.Change) ([]byte, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("encoding change: %w", err)
	}
	return data, nil
}

func decodeChange(data []byte) (docstore.Change, error) {
	var change docstore.Change
	if err := json.Unmarshal(data, &change); err != nil {
		return docstore.Change{}, fmt.Errorf("decoding change: %w", err)
	}
	if change.Collection == "" || change.ID == "" {
		return docstore.Change{}, fmt.Errorf("decoding change: missing document key")
	}
	return change, nil
}
