package domain

import "time"

// ChangeOp is the kind of row change reported by the store.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// ChangeEvent says that something in (Table, Scope) changed. Consumers re-fetch
// the scoped result set instead of trusting the event contents.
type ChangeEvent struct {
	Table string    `json:"table"`
	Op    ChangeOp  `json:"op"`
	RowID string    `json:"id"`
	Scope Scope     `json:"scope"`
	At    time.Time `json:"at"`
}
