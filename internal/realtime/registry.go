package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// Registry shares one change-feed subscription per (table, scope) between all
// mounted views. The first Open subscribes, the last Close unsubscribes.
type Registry struct {
	feed   repository.ChangeFeed
	logger *zap.Logger

	mu       sync.Mutex
	channels map[string]*channel
}

func NewRegistry(feed repository.ChangeFeed, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		feed:     feed,
		logger:   logger,
		channels: make(map[string]*channel),
	}
}

type channel struct {
	key   string
	table string
	scope domain.Scope

	ready chan struct{}
	sub   repository.Subscription
	gen   atomic.Uint64

	mu      sync.Mutex
	handles map[*Handle]struct{}
}

func channelKey(table string, scope domain.Scope) string {
	return table + ":" + scope.Key()
}

// Open registers onChange for changes to table within scope. onChange carries
// no payload: callers re-fetch. A failure to subscribe is logged and the
// handle simply never fires.
func (r *Registry) Open(ctx context.Context, table string, scope domain.Scope, onChange func()) *Handle {
	h := &Handle{
		onChange: onChange,
		signal:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	if scope.IsZero() {
		r.logger.Error("refusing to open unscoped channel", zap.String("table", table))
		close(h.stop)
		return h
	}

	key := channelKey(table, scope)
	r.mu.Lock()
	ch, exists := r.channels[key]
	if !exists {
		ch = &channel{
			key:     key,
			table:   table,
			scope:   scope,
			ready:   make(chan struct{}),
			handles: make(map[*Handle]struct{}),
		}
		r.channels[key] = ch
	}
	h.reg = r
	h.ch = ch
	ch.mu.Lock()
	ch.handles[h] = struct{}{}
	ch.mu.Unlock()
	r.mu.Unlock()

	if !exists {
		r.subscribe(ctx, ch)
	}
	<-ch.ready

	go h.run()
	return h
}

func (r *Registry) subscribe(ctx context.Context, ch *channel) {
	defer close(ch.ready)
	if r.feed == nil {
		r.logger.Warn("no change feed configured", zap.String("table", ch.table), zap.String("scope", ch.scope.Key()))
		return
	}
	sub, err := r.feed.Subscribe(ctx, ch.table, ch.scope)
	if err != nil {
		r.logger.Warn("subscription failed, live updates disabled for channel",
			zap.String("table", ch.table),
			zap.String("scope", ch.scope.Key()),
			zap.Error(err),
		)
		return
	}
	ch.sub = sub
	go ch.fanOut()
}

func (ch *channel) fanOut() {
	for range ch.sub.Events() {
		ch.gen.Add(1)
		ch.mu.Lock()
		for h := range ch.handles {
			h.notify()
		}
		ch.mu.Unlock()
	}
}

func (r *Registry) release(h *Handle) {
	ch := h.ch
	r.mu.Lock()
	ch.mu.Lock()
	delete(ch.handles, h)
	empty := len(ch.handles) == 0
	ch.mu.Unlock()
	if empty && r.channels[ch.key] == ch {
		delete(r.channels, ch.key)
	}
	r.mu.Unlock()

	if !empty {
		return
	}
	<-ch.ready
	if ch.sub != nil {
		if err := ch.sub.Close(); err != nil {
			r.logger.Warn("failed to close subscription", zap.String("table", ch.table), zap.String("scope", ch.scope.Key()), zap.Error(err))
		}
	}
}

// Channels returns the number of shared channels currently open.
func (r *Registry) Channels() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Handles returns the number of handles sharing the channel for (table, scope).
func (r *Registry) Handles(table string, scope domain.Scope) int {
	r.mu.Lock()
	ch, ok := r.channels[channelKey(table, scope)]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.handles)
}

// Handle is one subscriber's entry on a shared channel.
type Handle struct {
	reg      *Registry
	ch       *channel
	onChange func()

	signal chan struct{}
	stop   chan struct{}
	once   sync.Once
}

// notify coalesces bursts: a pending signal absorbs further events.
func (h *Handle) notify() {
	select {
	case h.signal <- struct{}{}:
	default:
	}
}

func (h *Handle) run() {
	for {
		select {
		case <-h.stop:
			return
		case <-h.signal:
			select {
			case <-h.stop:
				return
			default:
			}
			if h.onChange != nil {
				h.onChange()
			}
		}
	}
}

// Generation counts the change events seen on the handle's channel.
func (h *Handle) Generation() uint64 {
	if h == nil || h.ch == nil {
		return 0
	}
	return h.ch.gen.Load()
}

// Live reports whether the handle is attached to a working subscription.
func (h *Handle) Live() bool {
	if h == nil || h.ch == nil {
		return false
	}
	select {
	case <-h.stop:
		return false
	default:
	}
	return h.ch.sub != nil
}

// Close detaches the handle. It is safe to call more than once.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.ch == nil {
			return
		}
		select {
		case <-h.stop:
		default:
			close(h.stop)
		}
		h.reg.release(h)
	})
}
