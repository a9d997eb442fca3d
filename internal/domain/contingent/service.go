package contingent

import (
	"context"

	"github.com/google/uuid"

	"github.com/promed/promed/internal/platform/apperr"
)

// SheetChecker reports whether an open route sheet currently references an
// employee. Wired by the composition root; when nil the hazard-immutability
// guard is skipped (registry running standalone).
type SheetChecker interface {
	HasOpenSheet(ctx context.Context, employeeID uuid.UUID) (bool, error)
}

type Service struct {
	employees EmployeeRepository
	sheets    SheetChecker
}

func NewService(employees EmployeeRepository) *Service {
	return &Service{employees: employees}
}

// SetSheetChecker attaches the route-sheet guard.
func (s *Service) SetSheetChecker(sc SheetChecker) { s.sheets = sc }

func validateEmployee(e *Employee) error {
	if e.FullName == "" {
		return apperr.Validation("full_name", "is required")
	}
	if e.JobTitle == "" {
		return apperr.Validation("job_title", "is required")
	}
	if e.Department == "" {
		return apperr.Validation("department", "is required")
	}
	if e.BirthDate.IsZero() {
		return apperr.Validation("birth_date", "is required")
	}
	return nil
}

// ImportRoster registers a batch of employees from an employer's roster. The
// batch is all-or-nothing at the validation stage: a single bad row rejects
// the import so the employer can fix the roster and resubmit.
func (s *Service) ImportRoster(ctx context.Context, employees []*Employee) ([]*Employee, error) {
	if len(employees) == 0 {
		return nil, apperr.Validation("roster", "is empty")
	}
	for _, e := range employees {
		if err := validateEmployee(e); err != nil {
			return nil, err
		}
	}
	for _, e := range employees {
		if err := s.employees.Create(ctx, e); err != nil {
			return nil, err
		}
	}
	return employees, nil
}

func (s *Service) GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return s.employees.GetByID(ctx, id)
}

func (s *Service) ListEmployees(ctx context.Context, department string, limit, offset int) ([]*Employee, int, error) {
	return s.employees.List(ctx, department, limit, offset)
}

// UpdateEmployee applies HR edits. The hazard-factor set is immutable while an
// open route sheet derived from it exists; changing hazards mid-cycle requires
// a new examination cycle.
func (s *Service) UpdateEmployee(ctx context.Context, e *Employee) error {
	if err := validateEmployee(e); err != nil {
		return err
	}

	current, err := s.employees.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}

	if !hazardsEqual(current.HazardFactors, e.HazardFactors) && s.sheets != nil {
		open, err := s.sheets.HasOpenSheet(ctx, e.ID)
		if err != nil {
			return err
		}
		if open {
			return apperr.Validation("hazard_factors",
				"cannot change while an open route sheet references this employee; close the sheet or start a new cycle")
		}
	}

	return s.employees.Update(ctx, e)
}

// ArchiveEmployee soft-deletes a registry record. Refused while an open route
// sheet still references the employee.
func (s *Service) ArchiveEmployee(ctx context.Context, id uuid.UUID) error {
	if s.sheets != nil {
		open, err := s.sheets.HasOpenSheet(ctx, id)
		if err != nil {
			return err
		}
		if open {
			return apperr.Validation("employee",
				"cannot archive while an open route sheet references this employee")
		}
	}
	return s.employees.Archive(ctx, id)
}

// JobProfile returns the facts the route derivation engine needs.
func (s *Service) JobProfile(ctx context.Context, id uuid.UUID) (jobTitle string, hazards []string, err error) {
	e, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return e.JobTitle, e.HazardFactors, nil
}
