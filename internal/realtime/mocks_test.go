package realtime_test

import (
	"context"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
	"github.com/fastygo/teamspace/repository"
)

type mockLedger struct {
	recordFn func(entry ledger.Entry) error
}

func (m *mockLedger) Record(entry ledger.Entry) error {
	if m.recordFn != nil {
		return m.recordFn(entry)
	}
	return nil
}

// failingTable wraps a table and lets a test replace single operations.
type failingTable[T any] struct {
	repository.Table[T]
	deleteFn func(ctx context.Context, id string) error
	updateFn func(ctx context.Context, id string, fields domain.Fields) (*T, error)
}

func (f *failingTable[T]) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return f.Table.Delete(ctx, id)
}

func (f *failingTable[T]) Update(ctx context.Context, id string, fields domain.Fields) (*T, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}
	return f.Table.Update(ctx, id, fields)
}

// slowTable counts selects and holds each one until the test lets it go.
type slowTable[T any] struct {
	repository.Table[T]
	selectFn func(ctx context.Context, q repository.Query) ([]T, error)
}

func (s *slowTable[T]) Select(ctx context.Context, q repository.Query) ([]T, error) {
	if s.selectFn != nil {
		return s.selectFn(ctx, q)
	}
	return s.Table.Select(ctx, q)
}
