package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
)

// LiveCounter reports how much of the realtime layer is in use.
type LiveCounter interface {
	Channels() int
	Mounts() int
}

// WorkerLister reports the background workers still running.
type WorkerLister interface {
	Running() []string
}

// Probes are the in-process parts of the report. Either may be nil.
type Probes struct {
	Live    LiveCounter
	Workers WorkerLister
}

type Monitor struct {
	pg     *pgxpool.Pool
	redis  *redislib.Client
	ledger *ledger.Store
	probes Probes

	mu       sync.RWMutex
	status   Status
	interval time.Duration
	logger   *zap.Logger
}

// New builds a monitor. A nil pool and client together mean the in-memory
// store is in use and count as up.
func New(pg *pgxpool.Pool, redis *redislib.Client, store *ledger.Store, probes Probes, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		ledger:   store,
		probes:   probes,
		interval: interval,
		logger:   logger,
	}
}

// Run checks the dependencies every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(ctx)
	for {
		select {
		case <-ticker.C:
			m.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh runs every check once and stores the report.
func (m *Monitor) Refresh(ctx context.Context) Status {
	ledgerOK, orphans := m.checkLedger()
	status := Status{
		PostgreSQL: m.checkPostgres(ctx),
		Redis:      m.checkRedis(ctx),
		Ledger:     ledgerOK,
		Orphans:    orphans,
		Workers:    []string{},
		LastCheck:  time.Now(),
	}
	if m.probes.Live != nil {
		status.Channels = m.probes.Live.Channels()
		status.Mounts = m.probes.Live.Mounts()
	}
	if m.probes.Workers != nil {
		status.Workers = m.probes.Workers.Running()
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.LastCheck.IsZero() {
		return status
	}
	if previous.Online() != status.Online() {
		m.logger.Warn("dependency status changed",
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis),
		)
	}
	if status.Orphans > previous.Orphans {
		m.logger.Warn("orphaned storage recorded",
			zap.Int("orphans", status.Orphans),
			zap.Int("new", status.Orphans-previous.Orphans),
		)
	}
	return status
}

func (m *Monitor) checkPostgres(ctx context.Context) bool {
	if m.pg == nil {
		return m.redis == nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) checkRedis(ctx context.Context) bool {
	if m.redis == nil {
		return m.pg == nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkLedger() (bool, int) {
	if m.ledger == nil {
		return false, 0
	}
	if err := m.ledger.Ping(); err != nil {
		m.logger.Warn("ledger check failed", zap.Error(err))
		return false, 0
	}
	size, err := m.ledger.Size()
	if err != nil {
		m.logger.Warn("ledger size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
