package calendarplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/notification"
)

type mockPlanRepo struct {
	plans map[uuid.UUID]*CalendarPlan
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[uuid.UUID]*CalendarPlan)}
}

func (m *mockPlanRepo) Create(_ context.Context, p *CalendarPlan) error {
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id uuid.UUID) (*CalendarPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, apperr.NotFound("calendar plan", id.String())
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlanRepo) Update(_ context.Context, p *CalendarPlan) error {
	if _, ok := m.plans[p.ID]; !ok {
		return apperr.NotFound("calendar plan", p.ID.String())
	}
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) List(_ context.Context, status Status, limit, offset int) ([]*CalendarPlan, int, error) {
	var out []*CalendarPlan
	for _, p := range m.plans {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockPlanRepo) ListApproved(_ context.Context) ([]*CalendarPlan, error) {
	var out []*CalendarPlan
	for _, p := range m.plans {
		if p.Status == StatusApproved || p.Status == StatusSentToAuthority {
			out = append(out, p)
		}
	}
	return out, nil
}

func testScope(employees ...uuid.UUID) Scope {
	return Scope{
		Department:  "Цех 1",
		EmployeeIDs: employees,
		DateFrom:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DateTo:      time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(repo *mockPlanRepo) (*Service, *notification.LogDispatcher) {
	d := notification.NewLogDispatcher(zerolog.Nop())
	return NewService(repo, d, nil, zerolog.Nop()), d
}

func mustCreate(t *testing.T, svc *Service, scopes ...Scope) *CalendarPlan {
	t.Helper()
	p, err := svc.CreatePlan(context.Background(), &CalendarPlan{Scopes: scopes})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return p
}

func transition(t *testing.T, svc *Service, id uuid.UUID, action Action, reason string) *CalendarPlan {
	t.Helper()
	p, err := svc.Transition(context.Background(), id, TransitionRequest{
		Action: action, Actor: "test", Role: "clinic", Reason: reason,
	})
	if err != nil {
		t.Fatalf("Transition(%s): %v", action, err)
	}
	return p
}

func TestCreatePlanRequiresScope(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	_, err := svc.CreatePlan(context.Background(), &CalendarPlan{})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestApprovalFlow(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, testScope(uuid.New()))

	p = transition(t, svc, p.ID, ActionSubmit, "")
	if p.Status != StatusPendingClinicApproval {
		t.Fatalf("after submit: %s", p.Status)
	}
	p = transition(t, svc, p.ID, ActionClinicApprove, "")
	if p.Status != StatusPendingEmployerApproval {
		t.Fatalf("after clinic approve: %s", p.Status)
	}
	p = transition(t, svc, p.ID, ActionEmployerApprove, "")
	if p.Status != StatusApproved {
		t.Fatalf("after employer approve: %s", p.Status)
	}
	p = transition(t, svc, p.ID, ActionSendToAuthority, "")
	if p.Status != StatusSentToAuthority {
		t.Fatalf("after send: %s", p.Status)
	}

	if len(p.History) != 4 {
		t.Fatalf("expected 4 history records, got %d", len(p.History))
	}
	for i, rec := range p.History {
		if rec.At.IsZero() {
			t.Errorf("history[%d] has zero timestamp", i)
		}
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, testScope(uuid.New()))
	transition(t, svc, p.ID, ActionSubmit, "")

	_, err := svc.Transition(context.Background(), p.ID, TransitionRequest{
		Action: ActionReject, Actor: "Петров", Role: "employer",
	})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty reason, got %v", err)
	}
}

// An employer rejection with a reason parks the plan in rejected; resubmission
// restarts approval, and the plan grants no coverage until both parties have
// approved again.
func TestRejectAndResubmit(t *testing.T) {
	repo := newMockPlanRepo()
	svc, _ := newTestService(repo)
	emp := uuid.New()
	p := mustCreate(t, svc, testScope(emp))
	transition(t, svc, p.ID, ActionSubmit, "")
	transition(t, svc, p.ID, ActionClinicApprove, "")

	p, err := svc.Transition(context.Background(), p.ID, TransitionRequest{
		Action: ActionReject, Actor: "Петров", Role: "employer",
		Reason: "даты не устраивают",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if p.Status != StatusRejected {
		t.Fatalf("after reject: %s", p.Status)
	}
	if p.RejectionReason == nil || *p.RejectionReason != "даты не устраивают" {
		t.Fatalf("rejection reason not recorded: %v", p.RejectionReason)
	}

	p = transition(t, svc, p.ID, ActionResubmit, "")
	if p.Status != StatusPendingClinicApproval {
		t.Fatalf("after resubmit: %s", p.Status)
	}
	if p.RejectionReason != nil {
		t.Fatal("rejection reason must be cleared on resubmit")
	}
	p = transition(t, svc, p.ID, ActionClinicApprove, "")
	if p.Status != StatusPendingEmployerApproval {
		t.Fatalf("after re-approve by clinic: %s", p.Status)
	}

	covered, err := svc.CoversEmployee(context.Background(), emp,
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CoversEmployee: %v", err)
	}
	if covered {
		t.Fatal("plan awaiting employer re-approval must not grant coverage")
	}

	last := p.History[len(p.History)-1]
	if last.Action != ActionClinicApprove {
		t.Fatalf("last history action = %s", last.Action)
	}
	rejected := p.History[2]
	if rejected.Action != ActionReject || rejected.Reason != "даты не устраивают" {
		t.Fatalf("reject history record wrong: %+v", rejected)
	}
}

func TestClinicApproveGuardIncompleteScope(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, Scope{
		Department: "Цех 2",
		DateFrom:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DateTo:     time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	})

	_, err := svc.Transition(context.Background(), p.ID, TransitionRequest{
		Action: ActionClinicApprove, Actor: "test", Role: "clinic",
	})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty employee set, got %v", err)
	}
}

func TestIllegalTransitionIsStateConflict(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, testScope(uuid.New()))

	_, err := svc.Transition(context.Background(), p.ID, TransitionRequest{
		Action: ActionEmployerApprove, Actor: "test", Role: "employer",
	})
	if !apperr.IsStateConflict(err) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}

	got, err := svc.GetPlan(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if got.Status != StatusDraft {
		t.Fatalf("status changed on illegal transition: %s", got.Status)
	}
	if len(got.History) != 0 {
		t.Fatal("illegal transition must not append history")
	}
}

func TestUpdateFrozenPlan(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, testScope(uuid.New()))
	transition(t, svc, p.ID, ActionSubmit, "")
	transition(t, svc, p.ID, ActionClinicApprove, "")

	_, err := svc.UpdatePlan(context.Background(), p.ID, []Scope{testScope(uuid.New())}, nil, nil)
	if !apperr.IsStateConflict(err) {
		t.Fatalf("expected StateConflictError editing frozen plan, got %v", err)
	}
}

func TestEmployerNotifiedOnClinicApproval(t *testing.T) {
	svc, dispatcher := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, testScope(uuid.New()))
	transition(t, svc, p.ID, ActionSubmit, "")
	transition(t, svc, p.ID, ActionClinicApprove, "")

	var toEmployer int
	for _, n := range dispatcher.Sent() {
		if n.Recipient == notification.PartyEmployer {
			toEmployer++
		}
	}
	if toEmployer != 1 {
		t.Fatalf("expected 1 employer notification, got %d", toEmployer)
	}
}
