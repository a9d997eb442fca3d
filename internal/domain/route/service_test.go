package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promed/promed/internal/platform/apperr"
)

type mockSheetRepo struct {
	sheets map[uuid.UUID]*RouteSheet
}

func newMockSheetRepo() *mockSheetRepo {
	return &mockSheetRepo{sheets: make(map[uuid.UUID]*RouteSheet)}
}

func (m *mockSheetRepo) Create(_ context.Context, s *RouteSheet) error {
	cp := *s
	cp.Services = append([]ExaminationService(nil), s.Services...)
	m.sheets[s.ID] = &cp
	return nil
}

func (m *mockSheetRepo) GetByID(_ context.Context, id uuid.UUID) (*RouteSheet, error) {
	s, ok := m.sheets[id]
	if !ok {
		return nil, apperr.NotFound("route sheet", id.String())
	}
	cp := *s
	cp.Services = append([]ExaminationService(nil), s.Services...)
	return &cp, nil
}

func (m *mockSheetRepo) GetOpenByEmployee(_ context.Context, employeeID uuid.UUID) (*RouteSheet, error) {
	for _, s := range m.sheets {
		if s.EmployeeID == employeeID && s.Status == SheetOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("open route sheet", employeeID.String())
}

func (m *mockSheetRepo) GetLatestByEmployee(_ context.Context, employeeID uuid.UUID) (*RouteSheet, error) {
	var latest *RouteSheet
	for _, s := range m.sheets {
		if s.EmployeeID != employeeID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("route sheet", employeeID.String())
	}
	cp := *latest
	cp.Services = append([]ExaminationService(nil), latest.Services...)
	return &cp, nil
}

func (m *mockSheetRepo) List(_ context.Context, status SheetStatus, limit, offset int) ([]*RouteSheet, int, error) {
	var out []*RouteSheet
	for _, s := range m.sheets {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockSheetRepo) UpdateStatus(_ context.Context, id uuid.UUID, status SheetStatus) error {
	s, ok := m.sheets[id]
	if !ok {
		return apperr.NotFound("route sheet", id.String())
	}
	s.Status = status
	return nil
}

func (m *mockSheetRepo) GetService(_ context.Context, serviceID uuid.UUID) (*ExaminationService, error) {
	for _, s := range m.sheets {
		for i := range s.Services {
			if s.Services[i].ID == serviceID {
				cp := s.Services[i]
				return &cp, nil
			}
		}
	}
	return nil, apperr.NotFound("examination service", serviceID.String())
}

func (m *mockSheetRepo) CompleteService(_ context.Context, serviceID uuid.UUID) (*ExaminationService, error) {
	for _, s := range m.sheets {
		for i := range s.Services {
			if s.Services[i].ID == serviceID {
				if s.Services[i].Status != ServiceCompleted {
					now := time.Now()
					s.Services[i].Status = ServiceCompleted
					s.Services[i].CompletedAt = &now
				}
				cp := s.Services[i]
				return &cp, nil
			}
		}
	}
	return nil, apperr.NotFound("examination service", serviceID.String())
}

type stubEmployeeSource struct {
	jobTitle string
	hazards  []string
	err      error
}

func (s *stubEmployeeSource) JobProfile(context.Context, uuid.UUID) (string, []string, error) {
	return s.jobTitle, s.hazards, s.err
}

type stubPlanGate struct {
	covered bool
	err     error
}

func (s *stubPlanGate) CoversEmployee(context.Context, uuid.UUID, time.Time) (bool, error) {
	return s.covered, s.err
}

var testVisit = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newRouteService(repo SheetRepository, emp EmployeeSource, gate PlanGate) *Service {
	return NewService(testRules(), repo, emp, gate, nil, zerolog.Nop())
}

func TestDeriveRouteWelderWithNoise(t *testing.T) {
	repo := newMockSheetRepo()
	svc := newRouteService(repo,
		&stubEmployeeSource{jobTitle: "Сварщик", hazards: []string{"Шум"}},
		&stubPlanGate{covered: true})

	sheet, err := svc.DeriveRoute(context.Background(), uuid.New(), testVisit)
	if err != nil {
		t.Fatalf("DeriveRoute: %v", err)
	}
	if sheet.Status != SheetOpen {
		t.Fatalf("new sheet status = %s", sheet.Status)
	}
	if len(sheet.Services) != 5 {
		t.Fatalf("expected 5 services, got %d", len(sheet.Services))
	}
	var audio bool
	for i, s := range sheet.Services {
		if s.Status != ServicePending {
			t.Errorf("service %s created as %s", s.Code, s.Status)
		}
		if s.Position != i+1 {
			t.Errorf("service %s has position %d, want %d", s.Code, s.Position, i+1)
		}
		if s.Code == "EX-AUDIO" {
			audio = true
		}
	}
	if sheet.Services[0].Code != "EX-THERAPY" {
		t.Fatalf("route must start where the rules start, got %s", sheet.Services[0].Code)
	}
	if !audio {
		t.Fatal("noise hazard must put audiometry on the sheet")
	}
}

func TestDeriveRouteWithoutApprovedPlan(t *testing.T) {
	svc := newRouteService(newMockSheetRepo(),
		&stubEmployeeSource{jobTitle: "Сварщик"},
		&stubPlanGate{covered: false})

	_, err := svc.DeriveRoute(context.Background(), uuid.New(), testVisit)
	var pna *apperr.PlanNotApprovedError
	if !errors.As(err, &pna) {
		t.Fatalf("expected PlanNotApprovedError, got %v", err)
	}
}

func TestDeriveRouteUnknownJob(t *testing.T) {
	svc := newRouteService(newMockSheetRepo(),
		&stubEmployeeSource{jobTitle: "Космонавт"},
		&stubPlanGate{covered: true})

	_, err := svc.DeriveRoute(context.Background(), uuid.New(), testVisit)
	var nrd *apperr.NoRouteDefinedError
	if !errors.As(err, &nrd) {
		t.Fatalf("expected NoRouteDefinedError, got %v", err)
	}
}

func TestDeriveRouteRejectsSecondOpenSheet(t *testing.T) {
	repo := newMockSheetRepo()
	svc := newRouteService(repo,
		&stubEmployeeSource{jobTitle: "Сварщик"},
		&stubPlanGate{covered: true})
	emp := uuid.New()

	if _, err := svc.DeriveRoute(context.Background(), emp, testVisit); err != nil {
		t.Fatalf("first derive: %v", err)
	}
	_, err := svc.DeriveRoute(context.Background(), emp, testVisit)
	if !apperr.IsStateConflict(err) {
		t.Fatalf("expected StateConflictError for second open sheet, got %v", err)
	}
}

func TestMarkServiceCompletedClosesSheet(t *testing.T) {
	repo := newMockSheetRepo()
	svc := newRouteService(repo,
		&stubEmployeeSource{jobTitle: "Бухгалтер"},
		&stubPlanGate{covered: true})
	emp := uuid.New()

	sheet, err := svc.DeriveRoute(context.Background(), emp, testVisit)
	if err != nil {
		t.Fatalf("DeriveRoute: %v", err)
	}
	if len(sheet.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(sheet.Services))
	}

	if err := svc.MarkServiceCompleted(context.Background(), sheet.Services[0].ID); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), sheet.ID)
	if got.Status != SheetOpen {
		t.Fatalf("sheet closed with a service still pending: %s", got.Status)
	}

	if err := svc.MarkServiceCompleted(context.Background(), sheet.Services[1].ID); err != nil {
		t.Fatalf("complete second: %v", err)
	}
	got, _ = repo.GetByID(context.Background(), sheet.ID)
	if got.Status != SheetCompleted {
		t.Fatalf("sheet must complete with its last service, got %s", got.Status)
	}

	open, err := svc.HasOpenSheet(context.Background(), emp)
	if err != nil {
		t.Fatalf("HasOpenSheet: %v", err)
	}
	if open {
		t.Fatal("completed sheet still reported open")
	}

	progress, err := svc.ProgressByEmployee(context.Background(), emp)
	if err != nil {
		t.Fatalf("ProgressByEmployee: %v", err)
	}
	if !progress.AllCompleted {
		t.Fatal("progress must report all services completed")
	}
	if len(progress.Specializations) != 2 {
		t.Fatalf("expected 2 specializations, got %v", progress.Specializations)
	}
}

func TestLookupServiceForQueueAdmission(t *testing.T) {
	repo := newMockSheetRepo()
	svc := newRouteService(repo,
		&stubEmployeeSource{jobTitle: "Сварщик", hazards: []string{"Шум"}},
		&stubPlanGate{covered: true})
	emp := uuid.New()

	sheet, err := svc.DeriveRoute(context.Background(), emp, testVisit)
	if err != nil {
		t.Fatalf("DeriveRoute: %v", err)
	}
	target := sheet.Services[0]

	info, err := svc.LookupService(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("LookupService: %v", err)
	}
	if info.EmployeeID != emp || info.Station != target.Station || !info.Pending {
		t.Fatalf("unexpected service info: %+v", info)
	}

	if err := svc.MarkServiceCompleted(context.Background(), target.ID); err != nil {
		t.Fatalf("MarkServiceCompleted: %v", err)
	}
	info, err = svc.LookupService(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("LookupService after completion: %v", err)
	}
	if info.Pending {
		t.Fatal("completed service still reported pending")
	}
}

func TestCancelSheet(t *testing.T) {
	repo := newMockSheetRepo()
	svc := newRouteService(repo,
		&stubEmployeeSource{jobTitle: "Сварщик"},
		&stubPlanGate{covered: true})

	sheet, err := svc.DeriveRoute(context.Background(), uuid.New(), testVisit)
	if err != nil {
		t.Fatalf("DeriveRoute: %v", err)
	}
	cancelled, err := svc.CancelSheet(context.Background(), sheet.ID)
	if err != nil {
		t.Fatalf("CancelSheet: %v", err)
	}
	if cancelled.Status != SheetCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}

	_, err = svc.CancelSheet(context.Background(), sheet.ID)
	if !apperr.IsStateConflict(err) {
		t.Fatalf("expected StateConflictError cancelling twice, got %v", err)
	}
}
