package calendarplan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/metrics"
	"github.com/promed/promed/internal/platform/notification"
)

// TransitionRequest carries one approval-flow action against a plan. Role is
// never taken from the request body; the handler fills it from the verified
// token claims.
type TransitionRequest struct {
	Action Action `json:"action"`
	Actor  string `json:"actor"`
	Role   string `json:"-"`
	Reason string `json:"reason,omitempty"`
}

// Service owns plan lifecycle rules: scope validation, the approval state
// machine, and history bookkeeping.
type Service struct {
	repo     PlanRepository
	notifier notification.Dispatcher
	metrics  *metrics.Registry
	logger   zerolog.Logger
}

func NewService(repo PlanRepository, notifier notification.Dispatcher, m *metrics.Registry, logger zerolog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, metrics: m, logger: logger}
}

// CreatePlan registers a new draft plan. Scope completeness is not enforced
// here; drafts may be sketched out and filled in before submission.
func (s *Service) CreatePlan(ctx context.Context, p *CalendarPlan) (*CalendarPlan, error) {
	if len(p.Scopes) == 0 {
		return nil, apperr.Validation("scopes", "plan must contain at least one department scope")
	}
	for i := range p.Scopes {
		if strings.TrimSpace(p.Scopes[i].Department) == "" {
			return nil, apperr.Validation("scopes.department", "department is required")
		}
	}
	p.ID = uuid.New()
	p.Status = StatusDraft
	p.History = nil
	p.RejectionReason = nil
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("plan_id", p.ID.String()).Int("scopes", len(p.Scopes)).Msg("calendar plan created")
	return p, nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*CalendarPlan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, status Status, limit, offset int) ([]*CalendarPlan, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// UpdatePlan replaces scope contents. Allowed only while the plan is a draft
// or sitting rejected; once either party has approved, the plan freezes and a
// new plan must be created instead.
func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, scopes []Scope, hazards, specialists []string) (*CalendarPlan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Editable() {
		return nil, apperr.StateConflict("calendar plan", id.String(), string(p.Status), "edit")
	}
	if len(scopes) == 0 {
		return nil, apperr.Validation("scopes", "plan must contain at least one department scope")
	}
	p.Scopes = scopes
	p.HazardFactors = hazards
	p.Specialists = specialists
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Transition applies one approval-flow action. Illegal pairs yield a
// StateConflictError; action-specific guards run before the move, and every
// successful move appends an ApprovalRecord.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req TransitionRequest) (*CalendarPlan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	to, ok := next(p.Status, req.Action)
	if !ok {
		s.countTransition(req.Action, "rejected_transition")
		return nil, apperr.StateConflict("calendar plan", id.String(), string(p.Status), string(req.Action))
	}

	switch req.Action {
	case ActionClinicApprove, ActionSubmit, ActionResubmit:
		if err := scopesComplete(p.Scopes); err != nil {
			s.countTransition(req.Action, "guard_failed")
			return nil, err
		}
	case ActionReject:
		if strings.TrimSpace(req.Reason) == "" {
			s.countTransition(req.Action, "guard_failed")
			return nil, apperr.Validation("reason", "rejection requires a textual reason")
		}
	}

	p.Status = to
	if req.Action == ActionReject {
		reason := req.Reason
		p.RejectionReason = &reason
	} else {
		p.RejectionReason = nil
	}
	p.History = append(p.History, ApprovalRecord{
		Actor:  req.Actor,
		Role:   req.Role,
		Action: req.Action,
		Reason: req.Reason,
		At:     time.Now().UTC(),
	})

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.countTransition(req.Action, "ok")
	s.logger.Info().
		Str("plan_id", p.ID.String()).
		Str("action", string(req.Action)).
		Str("status", string(p.Status)).
		Msg("calendar plan transition")

	s.notifyAfter(ctx, p, req)
	return p, nil
}

// CoversEmployee reports whether any approved plan covers the employee on the
// visit date. Route derivation calls this through the plan gate.
func (s *Service) CoversEmployee(ctx context.Context, employeeID uuid.UUID, visitDate time.Time) (bool, error) {
	plans, err := s.repo.ListApproved(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range plans {
		if p.Covers(employeeID, visitDate) {
			return true, nil
		}
	}
	return false, nil
}

// scopesComplete is the clinic-approval guard: every sub-scope needs a
// non-empty employee set and a populated date range.
func scopesComplete(scopes []Scope) error {
	for i := range scopes {
		sc := &scopes[i]
		if len(sc.EmployeeIDs) == 0 {
			return apperr.Validation("scopes.employee_ids",
				"department "+sc.Department+" has no employees assigned")
		}
		if sc.DateFrom.IsZero() || sc.DateTo.IsZero() {
			return apperr.Validation("scopes.dates",
				"department "+sc.Department+" has no date range")
		}
		if sc.DateTo.Before(sc.DateFrom) {
			return apperr.Validation("scopes.dates",
				"department "+sc.Department+" date range is inverted")
		}
	}
	return nil
}

func (s *Service) countTransition(action Action, outcome string) {
	if s.metrics != nil {
		s.metrics.PlanTransitions.WithLabelValues(string(action), outcome).Inc()
	}
}

// Notifications are best effort: a delivery failure never rolls back an
// already persisted transition.
func (s *Service) notifyAfter(ctx context.Context, p *CalendarPlan, req TransitionRequest) {
	if s.notifier == nil {
		return
	}
	var recipient notification.Party
	var subject, body string
	switch p.Status {
	case StatusPendingClinicApproval:
		recipient = notification.PartyClinic
		subject = "Calendar plan awaiting clinic approval"
		body = "Plan " + p.ID.String() + " was submitted for clinic approval."
	case StatusPendingEmployerApproval:
		recipient = notification.PartyEmployer
		subject = "Calendar plan awaiting employer approval"
		body = "Plan " + p.ID.String() + " passed clinic approval and awaits the employer."
	case StatusApproved:
		recipient = notification.PartyClinic
		subject = "Calendar plan approved"
		body = "Plan " + p.ID.String() + " is approved; examinations may be scheduled."
	case StatusRejected:
		recipient = notification.PartyClinic
		subject = "Calendar plan rejected"
		body = "Plan " + p.ID.String() + " was rejected: " + req.Reason
	case StatusSentToAuthority:
		recipient = notification.PartyAuthority
		subject = "Calendar plan submitted"
		body = "Plan " + p.ID.String() + " was sent for regulatory review."
	default:
		return
	}
	if err := s.notifier.Notify(ctx, recipient, subject, body); err != nil {
		s.logger.Warn().Err(err).Str("plan_id", p.ID.String()).Msg("plan notification failed")
	}
}
