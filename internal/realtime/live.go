package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// ErrUnmounted is returned by Refresh once the view has been unmounted.
var ErrUnmounted = errors.New("realtime: view unmounted")

// Source describes what a live view shows: a scoped fetch plus the tables
// whose changes invalidate it.
type Source[T domain.Scoped] struct {
	// Name identifies the view kind, e.g. "tasks".
	Name string
	// Owner is the member the view is mounted for.
	Owner string
	// Scope is the filter every fetched record must satisfy.
	Scope domain.Scope
	// Query keys the fetch. Concurrent views with equal Name, Scope and Query
	// share one call, so Fetch must depend on nothing else. An empty Query
	// never shares.
	Query string
	Fetch func(ctx context.Context) ([]T, error)
	// Watch lists the channels to open. It defaults to Name within Scope.
	Watch []Channel
	// Less places records added by a create. Without it they go last.
	Less func(a, b T) bool
}

// Selecting reads q from table, keyed by q itself.
func Selecting[T domain.Scoped](table repository.Table[T], owner string, q repository.Query) Source[T] {
	return Source[T]{
		Name:  table.Name(),
		Owner: owner,
		Scope: q.Scope,
		Query: q.Key(),
		Fetch: func(ctx context.Context) ([]T, error) {
			return table.Select(ctx, q)
		},
	}
}

// Channel names one (table, scope) pair to subscribe to.
type Channel struct {
	Table string
	Scope domain.Scope
}

// LiveView is a mounted view: a local cache kept in step with the store by
// re-fetching whenever one of its channels reports a change.
type LiveView[T domain.Scoped] struct {
	id     string
	hub    *Hub
	source Source[T]
	view   *View[T]
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	handles []*Handle
	seq     uint64
	mounted bool
	err     error
}

// Mount opens the view's channels, then performs the initial fetch. Channels
// are opened first so that a change landing during the fetch still triggers
// a re-fetch. A failed initial fetch leaves the view mounted with Err set.
func Mount[T domain.Scoped](ctx context.Context, hub *Hub, src Source[T]) (*LiveView[T], error) {
	if src.Scope.IsZero() {
		return nil, domain.ErrMissingScope
	}
	if src.Fetch == nil {
		return nil, fmt.Errorf("realtime: view %q has no fetch", src.Name)
	}
	if len(src.Watch) == 0 {
		src.Watch = []Channel{{Table: src.Name, Scope: src.Scope}}
	}

	lvCtx, cancel := context.WithCancel(context.Background())
	lv := &LiveView[T]{
		id:      uuid.NewString(),
		hub:     hub,
		source:  src,
		view:    NewView[T](),
		logger:  hub.logger.With(zap.String("view", src.Name), zap.String("scope", src.Scope.Key())),
		ctx:     lvCtx,
		cancel:  cancel,
		mounted: true,
	}

	handles := make([]*Handle, 0, len(src.Watch))
	for _, w := range src.Watch {
		handles = append(handles, hub.registry.Open(ctx, w.Table, w.Scope, lv.onChange))
	}
	lv.mu.Lock()
	lv.handles = handles
	lv.mu.Unlock()
	hub.track(lv)

	if err := lv.Refresh(ctx); errors.Is(err, domain.ErrScopeRevoked) {
		return nil, err
	}
	return lv, nil
}

func (lv *LiveView[T]) ID() string    { return lv.id }
func (lv *LiveView[T]) Name() string  { return lv.source.Name }
func (lv *LiveView[T]) Owner() string { return lv.source.Owner }

func (lv *LiveView[T]) Scope() domain.Scope { return lv.source.Scope }

// View exposes the local cache.
func (lv *LiveView[T]) View() *View[T] { return lv.view }

func (lv *LiveView[T]) Snapshot() []T { return lv.view.Snapshot() }

// Changes fires after every successful fetch or local patch.
func (lv *LiveView[T]) Changes() <-chan struct{} { return lv.view.Changes() }

// Done is closed when the view is unmounted.
func (lv *LiveView[T]) Done() <-chan struct{} { return lv.ctx.Done() }

// Err returns the error of the most recent fetch, if it failed.
func (lv *LiveView[T]) Err() error {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.err
}

// Live reports whether every channel of the view is subscribed.
func (lv *LiveView[T]) Live() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	for _, h := range lv.handles {
		if !h.Live() {
			return false
		}
	}
	return len(lv.handles) > 0
}

func (lv *LiveView[T]) Mounted() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.mounted
}

func (lv *LiveView[T]) onChange() {
	ctx, cancel := context.WithTimeout(lv.ctx, lv.hub.timeout)
	defer cancel()
	if err := lv.Refresh(ctx); err != nil && !errors.Is(err, ErrUnmounted) {
		lv.logger.Warn("re-fetch failed", zap.Error(err))
	}
}

// flightKey groups concurrent fetches that would observe the same state:
// same view kind, scope, query and change generation.
func (lv *LiveView[T]) flightKey() string {
	query := lv.source.Query
	if query == "" {
		query = "view:" + lv.id
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s", lv.source.Name, lv.source.Scope.Key(), query)
	lv.mu.Lock()
	for _, h := range lv.handles {
		fmt.Fprintf(&b, "|%d", h.Generation())
	}
	lv.mu.Unlock()
	return b.String()
}

// Refresh re-fetches the scoped result set and replaces the cache. Results
// that arrive after unmount or after a newer fetch was issued are dropped.
func (lv *LiveView[T]) Refresh(ctx context.Context) error {
	lv.mu.Lock()
	if !lv.mounted {
		lv.mu.Unlock()
		return ErrUnmounted
	}
	lv.seq++
	seq := lv.seq
	lv.mu.Unlock()

	records, err := lv.load(ctx)
	if err == nil {
		err = lv.checkScope(records)
	}
	if err == nil {
		err = lv.admit(ctx)
	}
	if errors.Is(err, domain.ErrScopeRevoked) {
		lv.logger.Info("owner lost access to the view scope", zap.String("owner", lv.source.Owner))
		lv.hub.UnmountOwner(lv.source.Owner)
		return err
	}

	lv.mu.Lock()
	if !lv.mounted || seq != lv.seq {
		lv.mu.Unlock()
		return nil
	}
	lv.err = err
	lv.mu.Unlock()

	if err != nil {
		lv.view.signal()
		return err
	}
	lv.view.Replace(records)
	return nil
}

func (lv *LiveView[T]) load(ctx context.Context) ([]T, error) {
	ch := lv.hub.flights.DoChan(lv.flightKey(), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), lv.hub.timeout)
		defer cancel()
		return lv.source.Fetch(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		records, _ := res.Val.([]T)
		out := make([]T, len(records))
		copy(out, records)
		return out, nil
	}
}

// admit runs after the fetch, so a membership change that lands while the
// fetch is in flight still keeps its result out of the cache.
func (lv *LiveView[T]) admit(ctx context.Context) error {
	if lv.hub.admit == nil {
		return nil
	}
	return lv.hub.admit(ctx, lv.source.Owner, lv.source.Scope)
}

func (lv *LiveView[T]) checkScope(records []T) error {
	scope := lv.source.Scope
	for _, r := range records {
		if r.ScopeValue(scope.Column) != scope.Value {
			lv.logger.Error("fetched record outside view scope",
				zap.String("record_id", r.RecordID()),
				zap.String("record_scope", r.ScopeValue(scope.Column)),
			)
			return domain.ErrScopeLeak
		}
	}
	return nil
}

// PatchOne applies an optimistic local edit.
func (lv *LiveView[T]) PatchOne(id string, fn func(*T)) bool {
	if !lv.Mounted() {
		return false
	}
	return lv.view.PatchOne(id, fn)
}

// Append adds a record returned by a create call.
func (lv *LiveView[T]) Append(item T) {
	if !lv.Mounted() {
		return
	}
	if item.ScopeValue(lv.source.Scope.Column) != lv.source.Scope.Value {
		return
	}
	if lv.source.Less != nil {
		lv.view.Insert(item, lv.source.Less)
		return
	}
	lv.view.Append(item)
}

// Remove drops a record deleted through this view.
func (lv *LiveView[T]) Remove(id string) bool {
	if !lv.Mounted() {
		return false
	}
	return lv.view.Remove(id)
}

// Unmount closes the view's channels and discards any in-flight fetch result.
func (lv *LiveView[T]) Unmount() {
	lv.mu.Lock()
	if !lv.mounted {
		lv.mu.Unlock()
		return
	}
	lv.mounted = false
	handles := lv.handles
	lv.handles = nil
	lv.mu.Unlock()

	lv.cancel()
	for _, h := range handles {
		h.Close()
	}
	lv.hub.untrack(lv.id)
}
