package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// notifyPayload is the JSON body built by the notify_workspace_change trigger.
type notifyPayload struct {
	Table       string `json:"table"`
	Op          string `json:"op"`
	ID          string `json:"id"`
	ScopeColumn string `json:"scope_column"`
	ScopeValue  string `json:"scope_value"`
}

// Listener relays LISTEN/NOTIFY change notifications to a publisher.
type Listener struct {
	pool      *pgxpool.Pool
	channel   string
	publisher repository.ChangePublisher
	logger    *zap.Logger
	backoff   time.Duration
}

func NewListener(pool *pgxpool.Pool, channel string, publisher repository.ChangePublisher, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "workspace_changes"
	}
	return &Listener{
		pool:      pool,
		channel:   channel,
		publisher: publisher,
		logger:    logger,
		backoff:   time.Second,
	}
}

// Run blocks until ctx is cancelled, re-acquiring the connection when it drops.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("change listener disconnected", zap.String("channel", l.channel), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		return err
	}
	l.logger.Info("listening for store changes", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := decodeNotification(n.Payload)
		if err != nil {
			l.logger.Warn("discarding malformed change notification", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		if err := l.publisher.Publish(ctx, ev); err != nil {
			l.logger.Warn("failed to publish change",
				zap.String("table", ev.Table),
				zap.String("scope", ev.Scope.Key()),
				zap.Error(err),
			)
		}
	}
}

func decodeNotification(payload string) (domain.ChangeEvent, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.ChangeEvent{}, err
	}
	if p.Table == "" || p.ScopeColumn == "" || p.ScopeValue == "" {
		return domain.ChangeEvent{}, errors.New("notification without table or scope")
	}
	return domain.ChangeEvent{
		Table: p.Table,
		Op:    domain.ChangeOp(p.Op),
		RowID: p.ID,
		Scope: domain.Scope{Column: p.ScopeColumn, Value: p.ScopeValue},
		At:    time.Now(),
	}, nil
}
