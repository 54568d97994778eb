package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kinds of orphan recorded by the ledger.
const (
	// KindRow is a metadata row whose stored file is already gone.
	KindRow = "row"
	// KindObject is a stored file that no metadata row points at.
	KindObject = "object"
)

// Entry records a storage object and metadata row that fell out of step after
// a partially failed mutation.
type Entry struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	WorkspaceID string    `json:"workspace_id"`
	Table       string    `json:"table"`
	RowID       string    `json:"row_id,omitempty"`
	Path        string    `json:"path"`
	Reason      string    `json:"reason"`
	RecordedAt  time.Time `json:"recorded_at"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Kind == "" {
		e.Kind = KindRow
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
}
