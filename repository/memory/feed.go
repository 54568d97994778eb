package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// ErrFeedUnavailable is returned by Subscribe while the feed is offline.
var ErrFeedUnavailable = errors.New("memory: change feed unavailable")

const subscriberBuffer = 16

// Feed is an in-process change feed. Slow subscribers drop events rather than
// block publishers; a dropped event is harmless because consumers re-fetch.
type Feed struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscription]struct{}
	offline bool
	opened  int
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[*subscription]struct{})}
}

func feedKey(table string, scope domain.Scope) string {
	return table + ":" + scope.Key()
}

func (f *Feed) Subscribe(ctx context.Context, table string, scope domain.Scope) (repository.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scope.IsZero() {
		return nil, domain.ErrMissingScope
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, ErrFeedUnavailable
	}
	key := feedKey(table, scope)
	sub := &subscription{feed: f, key: key, ch: make(chan domain.ChangeEvent, subscriberBuffer)}
	if f.subs[key] == nil {
		f.subs[key] = make(map[*subscription]struct{})
	}
	f.subs[key][sub] = struct{}{}
	f.opened++
	return sub, nil
}

func (f *Feed) Publish(_ context.Context, ev domain.ChangeEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[feedKey(ev.Table, ev.Scope)] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

// SetOffline makes subsequent Subscribe calls fail.
func (f *Feed) SetOffline(offline bool) {
	f.mu.Lock()
	f.offline = offline
	f.mu.Unlock()
}

// Subscribers reports the number of open subscriptions for (table, scope).
func (f *Feed) Subscribers(table string, scope domain.Scope) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[feedKey(table, scope)])
}

// Opened reports how many subscriptions were ever opened.
func (f *Feed) Opened() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opened
}

type subscription struct {
	feed *Feed
	key  string
	ch   chan domain.ChangeEvent
	once sync.Once
}

func (s *subscription) Events() <-chan domain.ChangeEvent {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		if set := s.feed.subs[s.key]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(s.feed.subs, s.key)
			}
		}
		close(s.ch)
		s.feed.mu.Unlock()
	})
	return nil
}
