package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// Mounted is the type-erased side of a live view.
type Mounted interface {
	ID() string
	Name() string
	Owner() string
	Unmount()
}

// Hub owns the shared pieces every live view uses: the subscription
// registry, fetch de-duplication and the table of mounted views.
type Hub struct {
	registry *Registry
	flights  singleflight.Group
	timeout  time.Duration
	admit    Admission
	logger   *zap.Logger

	mu     sync.RWMutex
	mounts map[string]Mounted
}

// Admission confirms that owner may still see the rows of scope. It returns
// domain.ErrScopeRevoked once access is gone.
type Admission func(ctx context.Context, owner string, scope domain.Scope) error

// HubConfig tunes live view behaviour.
type HubConfig struct {
	RefetchTimeout time.Duration
	// Admit is checked after every fetch. A revoked owner loses every mounted
	// view. Nil admits everyone.
	Admit Admission
}

func NewHub(feed repository.ChangeFeed, cfg HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefetchTimeout <= 0 {
		cfg.RefetchTimeout = 10 * time.Second
	}
	return &Hub{
		registry: NewRegistry(feed, logger.Named("registry")),
		timeout:  cfg.RefetchTimeout,
		admit:    cfg.Admit,
		logger:   logger,
		mounts:   make(map[string]Mounted),
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Channels implements the monitor's channel counter.
func (h *Hub) Channels() int {
	return h.registry.Channels()
}

func (h *Hub) track(m Mounted) {
	h.mu.Lock()
	h.mounts[m.ID()] = m
	h.mu.Unlock()
}

func (h *Hub) untrack(id string) {
	h.mu.Lock()
	delete(h.mounts, id)
	h.mu.Unlock()
}

// Mounts returns the number of views currently mounted.
func (h *Hub) Mounts() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.mounts)
}

// UnmountOwner unmounts every view and page mounted for owner and returns
// how many it closed. Streams showing them end.
func (h *Hub) UnmountOwner(owner string) int {
	if owner == "" {
		return 0
	}
	h.mu.RLock()
	var owned []Mounted
	for _, m := range h.mounts {
		if m.Owner() == owner {
			owned = append(owned, m)
		}
	}
	h.mu.RUnlock()

	// Pages first: they close their parts and end their streams.
	sort.SliceStable(owned, func(i, j int) bool {
		_, pi := owned[i].(*Page)
		_, pj := owned[j].(*Page)
		return pi && !pj
	})
	for _, m := range owned {
		m.Unmount()
	}
	if len(owned) > 0 {
		h.logger.Info("unmounted views of member", zap.String("owner", owner), zap.Int("views", len(owned)))
	}
	return len(owned)
}

// Find returns the mounted view with the given id when it belongs to owner.
func (h *Hub) Find(id, owner string) (Mounted, bool) {
	if id == "" {
		return nil, false
	}
	h.mu.RLock()
	m, ok := h.mounts[id]
	h.mu.RUnlock()
	if !ok || m.Owner() != owner {
		return nil, false
	}
	return m, true
}

// Lookup returns the live view of type T mounted under id for owner, or nil.
// A page id resolves to its first part of type T.
func Lookup[T domain.Scoped](h *Hub, id, owner string) *LiveView[T] {
	if h == nil {
		return nil
	}
	m, ok := h.Find(id, owner)
	if !ok {
		return nil
	}
	switch v := m.(type) {
	case *LiveView[T]:
		return v
	case *Page:
		for _, part := range v.parts {
			if lv, ok := part.(*LiveView[T]); ok {
				return lv
			}
		}
	}
	return nil
}

// TargetFor returns the mounted view as a mutation target, or a nil interface
// when no such view is mounted for owner.
func TargetFor[T domain.Scoped](h *Hub, id, owner string) Target[T] {
	if lv := Lookup[T](h, id, owner); lv != nil {
		return lv
	}
	return nil
}
