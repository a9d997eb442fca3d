package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/metrics"
	"github.com/promed/promed/internal/platform/websocket"
)

// ServiceTicket is the route engine's answer to a service lookup: where the
// patient queues and whether the examination is still owed.
type ServiceTicket struct {
	ServiceID  uuid.UUID
	EmployeeID uuid.UUID
	Station    string
	Pending    bool
}

// SheetGateway is the queue's window into the route engine: resolving a
// service before admission and reporting its completion afterwards.
type SheetGateway interface {
	LookupService(ctx context.Context, serviceID uuid.UUID) (*ServiceTicket, error)
	MarkServiceCompleted(ctx context.Context, serviceID uuid.UUID) error
}

// Service runs per-station patient queues: admission against the route sheet,
// the call/start/complete workflow, and board notifications.
type Service struct {
	repo    EntryRepository
	sheets  SheetGateway
	events  websocket.Publisher
	metrics *metrics.Registry
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(repo EntryRepository, sheets SheetGateway, events websocket.Publisher, m *metrics.Registry, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		sheets:  sheets,
		events:  events,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Admit puts the patient into the station queue for one pending examination
// service. The station comes from the service itself; the caller only picks
// the priority.
func (s *Service) Admit(ctx context.Context, serviceID uuid.UUID, priority Priority) (*QueueEntry, error) {
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.Valid() {
		return nil, apperr.Validation("priority", "unknown priority "+string(priority))
	}

	ticket, err := s.sheets.LookupService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !ticket.Pending {
		return nil, apperr.Validation("service_id", "service is not pending on an open route sheet")
	}

	if existing, err := s.repo.FindActiveByService(ctx, serviceID); err == nil {
		return nil, apperr.StateConflict("queue entry", existing.ID.String(), string(existing.Status), "admit")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	e := &QueueEntry{
		ID:         uuid.New(),
		Station:    ticket.Station,
		ServiceID:  serviceID,
		EmployeeID: ticket.EmployeeID,
		Priority:   priority,
		Status:     StatusWaiting,
		EnqueuedAt: s.now(),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, e, "admit")
	s.logger.Info().
		Str("entry_id", e.ID.String()).
		Str("station", e.Station).
		Int("number", e.Number).
		Str("priority", string(e.Priority)).
		Msg("patient admitted to queue")
	return e, nil
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// Board returns the station's entries for today in service order.
func (s *Service) Board(ctx context.Context, station string) ([]*QueueEntry, error) {
	if station == "" {
		return nil, apperr.Validation("station", "station is required")
	}
	return s.repo.ListByStation(ctx, station, s.now())
}

// Call moves one waiting entry to called. Racing operators hit the repo's
// compare-and-set; exactly one wins.
func (s *Service) Call(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return s.transition(ctx, id, ActionCall)
}

// Start moves a called entry into the examination room.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return s.transition(ctx, id, ActionStart)
}

// Complete finishes the examination and reports it to the route sheet. The
// entry transition commits first; a sheet update failure surfaces but entry
// completion is never rolled back.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	e, err := s.transition(ctx, id, ActionComplete)
	if err != nil {
		return nil, err
	}
	if err := s.sheets.MarkServiceCompleted(ctx, e.ServiceID); err != nil {
		s.logger.Error().Err(err).
			Str("entry_id", e.ID.String()).
			Str("service_id", e.ServiceID.String()).
			Msg("entry completed but sheet update failed")
		return e, err
	}
	return e, nil
}

// Skip marks a patient who failed to show up. The operator must confirm
// explicitly; an unconfirmed skip is rejected before any state changes.
func (s *Service) Skip(ctx context.Context, id uuid.UUID, confirmed bool) (*QueueEntry, error) {
	if !confirmed {
		return nil, apperr.Validation("confirm", "skipping a patient requires operator confirmation")
	}
	return s.transition(ctx, id, ActionSkip)
}

// Requeue puts a skipped patient back among the waiting once they show up.
// The original ticket number is kept.
func (s *Service) Requeue(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return s.transition(ctx, id, ActionRequeue)
}

// Cancel voids an entry that has not started yet.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return s.transition(ctx, id, ActionCancel)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action) (*QueueEntry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, ok := next(e.Status, action)
	if !ok {
		return nil, apperr.StateConflict("queue entry", id.String(), string(e.Status), string(action))
	}

	updated, err := s.repo.Transition(ctx, id, e.Status, to, s.now())
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, string(action))
	s.logger.Info().
		Str("entry_id", updated.ID.String()).
		Str("station", updated.Station).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("queue entry transition")
	return updated, nil
}

// afterTransition publishes the board event and refreshes metrics. Both are
// best effort.
func (s *Service) afterTransition(ctx context.Context, e *QueueEntry, action string) {
	if s.metrics != nil {
		s.metrics.QueueTransitions.WithLabelValues(e.Station, action).Inc()
		if depth, err := s.repo.CountActive(ctx, e.Station); err == nil {
			s.metrics.QueueDepth.WithLabelValues(e.Station).Set(float64(depth))
		}
	}
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, websocket.Event{
		Topic:     websocket.StationTopic(e.Station),
		Action:    action,
		Station:   e.Station,
		EntryID:   e.ID.String(),
		Timestamp: s.now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("entry_id", e.ID.String()).Msg("queue event publish failed")
	}
}
