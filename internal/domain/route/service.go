package route

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/metrics"
)

// EmployeeSource supplies the job profile route derivation keys off. Backed
// by the contingent registry.
type EmployeeSource interface {
	JobProfile(ctx context.Context, employeeID uuid.UUID) (jobTitle string, hazards []string, err error)
}

// PlanGate answers whether an approved calendar plan covers the employee on
// the visit date.
type PlanGate interface {
	CoversEmployee(ctx context.Context, employeeID uuid.UUID, visitDate time.Time) (bool, error)
}

// Service derives route sheets from the rule table and tracks per-service
// progress on them.
type Service struct {
	rules     *RuleTable
	repo      SheetRepository
	employees EmployeeSource
	plans     PlanGate
	metrics   *metrics.Registry
	logger    zerolog.Logger
}

func NewService(rules *RuleTable, repo SheetRepository, employees EmployeeSource, plans PlanGate, m *metrics.Registry, logger zerolog.Logger) *Service {
	return &Service{rules: rules, repo: repo, employees: employees, plans: plans, metrics: m, logger: logger}
}

// Rules exposes the loaded rule table for the audit endpoint.
func (s *Service) Rules() *RuleTable { return s.rules }

// DeriveRoute creates a route sheet for the employee's visit. The visit must
// be covered by an approved calendar plan, the employee's job title must be
// known to the rule table, and the employee must not already have an open
// sheet.
func (s *Service) DeriveRoute(ctx context.Context, employeeID uuid.UUID, visitDate time.Time) (*RouteSheet, error) {
	if visitDate.IsZero() {
		return nil, apperr.Validation("visit_date", "visit date is required")
	}

	covered, err := s.plans.CoversEmployee(ctx, employeeID, visitDate)
	if err != nil {
		return nil, err
	}
	if !covered {
		return nil, &apperr.PlanNotApprovedError{EmployeeID: employeeID, VisitDate: visitDate}
	}

	if existing, err := s.repo.GetOpenByEmployee(ctx, employeeID); err == nil {
		return nil, apperr.StateConflict("route sheet", existing.ID.String(), string(SheetOpen), "derive")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	jobTitle, hazards, err := s.employees.JobProfile(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	specs, err := s.rules.Derive(jobTitle, hazards)
	if err != nil {
		return nil, err
	}

	sheet := &RouteSheet{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		JobTitle:   jobTitle,
		VisitDate:  visitDate,
		Status:     SheetOpen,
	}
	for i, spec := range specs {
		sheet.Services = append(sheet.Services, ExaminationService{
			ID:             uuid.New(),
			RouteSheetID:   sheet.ID,
			Position:       i + 1,
			Code:           spec.Code,
			Name:           spec.Name,
			Specialization: spec.Specialization,
			Station:        spec.Station,
			Status:         ServicePending,
		})
	}

	if err := s.repo.Create(ctx, sheet); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RouteSheets.Inc()
	}
	s.logger.Info().
		Str("sheet_id", sheet.ID.String()).
		Str("employee_id", employeeID.String()).
		Str("job_title", jobTitle).
		Int("services", len(sheet.Services)).
		Msg("route sheet derived")
	return sheet, nil
}

func (s *Service) GetSheet(ctx context.Context, id uuid.UUID) (*RouteSheet, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListSheets(ctx context.Context, status SheetStatus, limit, offset int) ([]*RouteSheet, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// CancelSheet voids an open sheet, for example when the visit is called off.
func (s *Service) CancelSheet(ctx context.Context, id uuid.UUID) (*RouteSheet, error) {
	sheet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sheet.Status != SheetOpen {
		return nil, apperr.StateConflict("route sheet", id.String(), string(sheet.Status), "cancel")
	}
	if err := s.repo.UpdateStatus(ctx, id, SheetCancelled); err != nil {
		return nil, err
	}
	sheet.Status = SheetCancelled
	return sheet, nil
}

// HasOpenSheet is the contingent registry's guard against mutating employees
// who are mid-examination.
func (s *Service) HasOpenSheet(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	_, err := s.repo.GetOpenByEmployee(ctx, employeeID)
	if err == nil {
		return true, nil
	}
	if apperr.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// ServiceInfo is what the queue scheduler needs to know about a service
// before admitting the patient to a station.
type ServiceInfo struct {
	ServiceID  uuid.UUID
	SheetID    uuid.UUID
	EmployeeID uuid.UUID
	Station    string
	Pending    bool
}

// LookupService resolves a service for queue admission.
func (s *Service) LookupService(ctx context.Context, serviceID uuid.UUID) (*ServiceInfo, error) {
	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	sheet, err := s.repo.GetByID(ctx, svc.RouteSheetID)
	if err != nil {
		return nil, err
	}
	return &ServiceInfo{
		ServiceID:  svc.ID,
		SheetID:    sheet.ID,
		EmployeeID: sheet.EmployeeID,
		Station:    svc.Station,
		Pending:    svc.Status == ServicePending && sheet.Status == SheetOpen,
	}, nil
}

// MarkServiceCompleted records that the examination happened. When the last
// pending service completes, the sheet itself completes.
func (s *Service) MarkServiceCompleted(ctx context.Context, serviceID uuid.UUID) error {
	svc, err := s.repo.CompleteService(ctx, serviceID)
	if err != nil {
		return err
	}
	sheet, err := s.repo.GetByID(ctx, svc.RouteSheetID)
	if err != nil {
		return err
	}
	if sheet.Status == SheetOpen && sheet.AllCompleted() {
		if err := s.repo.UpdateStatus(ctx, sheet.ID, SheetCompleted); err != nil {
			return err
		}
		s.logger.Info().Str("sheet_id", sheet.ID.String()).Msg("route sheet completed")
	}
	return nil
}

// SheetProgress is the expertise engine's readiness view of a sheet.
type SheetProgress struct {
	SheetID         uuid.UUID
	AllCompleted    bool
	PendingServices []string
	Specializations []string
}

// ProgressByEmployee reports the employee's latest sheet progress and the
// specializations its services require. The latest sheet is used rather than
// the open one: a sheet whose services are all done has already completed.
func (s *Service) ProgressByEmployee(ctx context.Context, employeeID uuid.UUID) (*SheetProgress, error) {
	sheet, err := s.repo.GetLatestByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if sheet.Status == SheetCancelled {
		return nil, apperr.NotFound("route sheet", employeeID.String())
	}
	p := &SheetProgress{SheetID: sheet.ID, AllCompleted: sheet.AllCompleted()}
	seen := make(map[string]struct{})
	for i := range sheet.Services {
		svc := &sheet.Services[i]
		if svc.Status == ServicePending {
			p.PendingServices = append(p.PendingServices, svc.Name)
		}
		if svc.Specialization == "" {
			continue
		}
		if _, dup := seen[svc.Specialization]; dup {
			continue
		}
		seen[svc.Specialization] = struct{}{}
		p.Specializations = append(p.Specializations, svc.Specialization)
	}
	return p, nil
}
