package realtime

import (
	"sync"

	"github.com/fastygo/teamspace/domain"
)

// View is the local cache of one scoped result set. Derived data is always
// computed from a Snapshot and never stored here.
type View[T domain.Record] struct {
	mu      sync.RWMutex
	items   []T
	index   map[string]int
	version uint64
	loaded  bool
	changes chan struct{}
}

func NewView[T domain.Record]() *View[T] {
	return &View[T]{
		index:   make(map[string]int),
		changes: make(chan struct{}, 1),
	}
}

// Replace swaps the whole list for a freshly fetched one. Pending optimistic
// patches are discarded: the store's answer wins.
func (v *View[T]) Replace(items []T) {
	next := make([]T, len(items))
	copy(next, items)
	index := make(map[string]int, len(next))
	for i, item := range next {
		index[item.RecordID()] = i
	}

	v.mu.Lock()
	v.items = next
	v.index = index
	v.loaded = true
	v.version++
	v.mu.Unlock()
	v.signal()
}

// PatchOne applies fn to the cached record with the given id. It reports
// false when the record is not cached.
func (v *View[T]) PatchOne(id string, fn func(*T)) bool {
	v.mu.Lock()
	i, ok := v.index[id]
	if ok {
		fn(&v.items[i])
		v.version++
	}
	v.mu.Unlock()
	if ok {
		v.signal()
	}
	return ok
}

// Append adds a record returned by a create call, replacing any cached copy.
func (v *View[T]) Append(item T) {
	v.mu.Lock()
	if i, ok := v.index[item.RecordID()]; ok {
		v.items[i] = item
	} else {
		v.index[item.RecordID()] = len(v.items)
		v.items = append(v.items, item)
	}
	v.version++
	v.mu.Unlock()
	v.signal()
}

// Insert adds a record returned by a create call at the position less
// gives it: before the first cached record it sorts ahead of. A cached copy
// is replaced in place.
func (v *View[T]) Insert(item T, less func(a, b T) bool) {
	v.mu.Lock()
	if i, ok := v.index[item.RecordID()]; ok {
		v.items[i] = item
	} else {
		at := len(v.items)
		for i := range v.items {
			if less(item, v.items[i]) {
				at = i
				break
			}
		}
		v.items = append(v.items, item)
		copy(v.items[at+1:], v.items[at:])
		v.items[at] = item
		for j := at; j < len(v.items); j++ {
			v.index[v.items[j].RecordID()] = j
		}
	}
	v.version++
	v.mu.Unlock()
	v.signal()
}

// Remove drops the record with the given id.
func (v *View[T]) Remove(id string) bool {
	v.mu.Lock()
	i, ok := v.index[id]
	if ok {
		v.items = append(v.items[:i:i], v.items[i+1:]...)
		delete(v.index, id)
		for j := i; j < len(v.items); j++ {
			v.index[v.items[j].RecordID()] = j
		}
		v.version++
	}
	v.mu.Unlock()
	if ok {
		v.signal()
	}
	return ok
}

// Snapshot returns a copy of the cached list.
func (v *View[T]) Snapshot() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

// Get returns a copy of one cached record.
func (v *View[T]) Get(id string) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var zero T
	i, ok := v.index[id]
	if !ok {
		return zero, false
	}
	return v.items[i], true
}

func (v *View[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

// Loaded reports whether at least one fetch has completed.
func (v *View[T]) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

func (v *View[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Changes fires, coalesced, after every modification. It has a single consumer.
func (v *View[T]) Changes() <-chan struct{} {
	return v.changes
}

func (v *View[T]) signal() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}
