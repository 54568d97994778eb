package realtime

import (
	"sync"

	"github.com/fastygo/teamspace/domain"
)

// Guard rejects a second run of an action while the first is still in flight,
// the way a submit button is disabled until its request settles.
type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{running: make(map[string]struct{})}
}

// Do runs fn unless an action with the same key is running, in which case it
// returns domain.ErrInFlight without calling fn.
func (g *Guard) Do(key string, fn func() error) error {
	g.mu.Lock()
	if _, busy := g.running[key]; busy {
		g.mu.Unlock()
		return domain.ErrInFlight
	}
	g.running[key] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.running, key)
		g.mu.Unlock()
	}()
	return fn()
}

// Busy reports whether key is in flight.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[key]
	return busy
}
