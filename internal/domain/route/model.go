package route

import (
	"time"

	"github.com/google/uuid"
)

// SheetStatus is the route sheet's lifecycle position.
type SheetStatus string

const (
	SheetOpen      SheetStatus = "open"
	SheetCompleted SheetStatus = "completed"
	SheetCancelled SheetStatus = "cancelled"
)

// ServiceStatus tracks one examination inside a sheet.
type ServiceStatus string

const (
	ServicePending   ServiceStatus = "pending"
	ServiceCompleted ServiceStatus = "completed"
)

// ExaminationService is one examination the employee must pass on this visit.
// Position is the service's place in the walking order the rules prescribe.
type ExaminationService struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	RouteSheetID   uuid.UUID     `db:"route_sheet_id" json:"route_sheet_id"`
	Position       int           `db:"position" json:"position"`
	Code           string        `db:"code" json:"code"`
	Name           string        `db:"name" json:"name"`
	Specialization string        `db:"specialization" json:"specialization"`
	Station        string        `db:"station" json:"station"`
	Status         ServiceStatus `db:"status" json:"status"`
	CompletedAt    *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// RouteSheet is the derived per-visit examination route. Its service list is
// fixed at derivation time; progress happens only through service completion.
type RouteSheet struct {
	ID         uuid.UUID            `db:"id" json:"id"`
	EmployeeID uuid.UUID            `db:"employee_id" json:"employee_id"`
	JobTitle   string               `db:"job_title" json:"job_title"`
	VisitDate  time.Time            `db:"visit_date" json:"visit_date"`
	Status     SheetStatus          `db:"status" json:"status"`
	Services   []ExaminationService `json:"services"`
	CreatedAt  time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `db:"updated_at" json:"updated_at"`
}

// Progress reports completed and total service counts.
func (s *RouteSheet) Progress() (done, total int) {
	for i := range s.Services {
		if s.Services[i].Status == ServiceCompleted {
			done++
		}
	}
	return done, len(s.Services)
}

// AllCompleted reports whether every service on the sheet is done.
func (s *RouteSheet) AllCompleted() bool {
	done, total := s.Progress()
	return total > 0 && done == total
}
