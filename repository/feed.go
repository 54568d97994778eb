package repository

import (
	"context"

	"github.com/fastygo/teamspace/domain"
)

// Subscription delivers change events for one (table, scope) pair until closed.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

// ChangeFeed is the change-notification primitive of the remote store.
type ChangeFeed interface {
	Subscribe(ctx context.Context, table string, scope domain.Scope) (Subscription, error)
}

// ChangePublisher forwards store notifications to subscribers.
type ChangePublisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}
