package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

const feedBuffer = 16

// ChangeFeed fans store change events out over Redis pub/sub so that every
// service instance sees them. Channels are named "<prefix>:<table>:<column>=<value>".
type ChangeFeed struct {
	client *redislib.Client
	prefix string
	logger *zap.Logger
}

func NewChangeFeed(client *redislib.Client, prefix string, logger *zap.Logger) *ChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "changes"
	}
	return &ChangeFeed{client: client, prefix: prefix, logger: logger}
}

var (
	_ repository.ChangeFeed      = (*ChangeFeed)(nil)
	_ repository.ChangePublisher = (*ChangeFeed)(nil)
)

func (f *ChangeFeed) channel(table string, scope domain.Scope) string {
	return fmt.Sprintf("%s:%s:%s", f.prefix, table, scope.Key())
}

func (f *ChangeFeed) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel(ev.Table, ev.Scope), payload).Err()
}

// Subscribe waits for the subscription confirmation so that a broken
// connection surfaces here instead of as a silent, never-firing channel.
func (f *ChangeFeed) Subscribe(ctx context.Context, table string, scope domain.Scope) (repository.Subscription, error) {
	if scope.IsZero() {
		return nil, domain.ErrMissingScope
	}
	pubsub := f.client.Subscribe(ctx, f.channel(table, scope))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &feedSubscription{
		pubsub: pubsub,
		events: make(chan domain.ChangeEvent, feedBuffer),
		done:   make(chan struct{}),
	}
	go sub.pump(f.logger)
	return sub, nil
}

type feedSubscription struct {
	pubsub *redislib.PubSub
	events chan domain.ChangeEvent
	done   chan struct{}
	once   sync.Once
}

func (s *feedSubscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *feedSubscription) pump(logger *zap.Logger) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.pubsub.Channel():
			if !ok {
				return
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("discarding malformed change event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case s.events <- ev:
			default:
			}
		}
	}
}

func (s *feedSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
