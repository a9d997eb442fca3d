package queue

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders waiting entries within a station. VIP beats urgent beats
// normal; ties break on the ticket number.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
	PriorityVIP    Priority = "vip"
)

// Rank returns the priority's sort weight; higher is served first.
func (p Priority) Rank() int {
	switch p {
	case PriorityVIP:
		return 2
	case PriorityUrgent:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is a recognized priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityVIP:
		return true
	}
	return false
}

// EntryStatus is the entry's position in the station workflow.
type EntryStatus string

const (
	StatusWaiting    EntryStatus = "waiting"
	StatusCalled     EntryStatus = "called"
	StatusInProgress EntryStatus = "in_progress"
	StatusCompleted  EntryStatus = "completed"
	StatusSkipped    EntryStatus = "skipped"
	StatusCancelled  EntryStatus = "cancelled"
)

// Action is a requested entry transition.
type Action string

const (
	ActionCall     Action = "call"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionSkip     Action = "skip"
	ActionRequeue  Action = "requeue"
	ActionCancel   Action = "cancel"
)

// QueueEntry is one patient's ticket at one station. The number is monotonic
// per station per day and never reused, even across cancellations.
type QueueEntry struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	Station    string      `db:"station" json:"station"`
	ServiceID  uuid.UUID   `db:"service_id" json:"service_id"`
	EmployeeID uuid.UUID   `db:"employee_id" json:"employee_id"`
	Number     int         `db:"number" json:"number"`
	Priority   Priority    `db:"priority" json:"priority"`
	Status     EntryStatus `db:"status" json:"status"`
	EnqueuedAt time.Time   `db:"enqueued_at" json:"enqueued_at"`
	CalledAt   *time.Time  `db:"called_at" json:"called_at,omitempty"`
	StartedAt  *time.Time  `db:"started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time  `db:"finished_at" json:"finished_at,omitempty"`
}

// next computes the status an action leads to. The second result is false
// when the pair is not a legal transition.
func next(current EntryStatus, action Action) (EntryStatus, bool) {
	switch action {
	case ActionCall:
		if current == StatusWaiting {
			return StatusCalled, true
		}
	case ActionStart:
		if current == StatusCalled {
			return StatusInProgress, true
		}
	case ActionComplete:
		if current == StatusInProgress {
			return StatusCompleted, true
		}
	case ActionSkip:
		if current == StatusWaiting || current == StatusCalled {
			return StatusSkipped, true
		}
	case ActionRequeue:
		if current == StatusSkipped {
			return StatusWaiting, true
		}
	case ActionCancel:
		if current == StatusWaiting || current == StatusCalled || current == StatusSkipped {
			return StatusCancelled, true
		}
	}
	return current, false
}

// Active reports whether the entry still occupies the station's queue.
func (e *QueueEntry) Active() bool {
	switch e.Status {
	case StatusWaiting, StatusCalled, StatusInProgress:
		return true
	}
	return false
}
