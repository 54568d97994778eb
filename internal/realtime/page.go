package realtime

import (
	"sync"

	"github.com/google/uuid"
)

type changer interface {
	Changes() <-chan struct{}
}

// Page groups the live views one screen shows under a single id, so that a
// mutation naming the page reaches whichever of its views matches the type.
type Page struct {
	id    string
	name  string
	owner string
	hub   *Hub
	parts []Mounted

	changes chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewPage tracks parts under a fresh id. Unmounting the page unmounts them.
func NewPage(hub *Hub, name, owner string, parts ...Mounted) *Page {
	p := &Page{
		id:      uuid.NewString(),
		name:    name,
		owner:   owner,
		hub:     hub,
		parts:   parts,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, part := range parts {
		if c, ok := part.(changer); ok {
			go p.forward(c.Changes())
		}
	}
	hub.track(p)
	return p
}

func (p *Page) ID() string    { return p.id }
func (p *Page) Name() string  { return p.name }
func (p *Page) Owner() string { return p.owner }

func (p *Page) Parts() []Mounted { return p.parts }

// Changes fires when any part changed. Bursts coalesce into one signal.
func (p *Page) Changes() <-chan struct{} { return p.changes }

func (p *Page) Done() <-chan struct{} { return p.done }

func (p *Page) forward(in <-chan struct{}) {
	for {
		select {
		case <-p.done:
			return
		case <-in:
			select {
			case p.changes <- struct{}{}:
			default:
			}
		}
	}
}

func (p *Page) Unmount() {
	p.once.Do(func() {
		close(p.done)
		for _, part := range p.parts {
			part.Unmount()
		}
		p.hub.untrack(p.id)
	})
}
