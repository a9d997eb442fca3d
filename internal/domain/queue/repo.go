package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryRepository stores queue entries. Transition is compare-and-set on the
// stored status: under concurrent operators only one request wins, the loser
// gets a StateConflictError built from the fresh row.
type EntryRepository interface {
	// Create assigns the next monotonic ticket number for the station and
	// day, then persists the entry.
	Create(ctx context.Context, e *QueueEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error)
	// Transition flips status from expected to to, stamping ts into the
	// column the target status owns.
	Transition(ctx context.Context, id uuid.UUID, expected, to EntryStatus, ts time.Time) (*QueueEntry, error)
	// ListByStation returns the station's entries for the given day, active
	// ones first in service order (priority rank desc, number asc).
	ListByStation(ctx context.Context, station string, day time.Time) ([]*QueueEntry, error)
	// FindActiveByService returns an active entry for the service, if any.
	FindActiveByService(ctx context.Context, serviceID uuid.UUID) (*QueueEntry, error)
	// CountActive returns the number of waiting or called entries at the
	// station.
	CountActive(ctx context.Context, station string) (int, error)
}
