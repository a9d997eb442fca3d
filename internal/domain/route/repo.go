package route

import (
	"context"

	"github.com/google/uuid"
)

// SheetRepository stores route sheets together with their services.
type SheetRepository interface {
	// Create persists the sheet and all of its services atomically.
	Create(ctx context.Context, s *RouteSheet) error
	GetByID(ctx context.Context, id uuid.UUID) (*RouteSheet, error)
	// GetOpenByEmployee returns the employee's open sheet, or a NotFoundError.
	GetOpenByEmployee(ctx context.Context, employeeID uuid.UUID) (*RouteSheet, error)
	// GetLatestByEmployee returns the employee's most recent sheet in any
	// status, or a NotFoundError.
	GetLatestByEmployee(ctx context.Context, employeeID uuid.UUID) (*RouteSheet, error)
	List(ctx context.Context, status SheetStatus, limit, offset int) ([]*RouteSheet, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status SheetStatus) error

	GetService(ctx context.Context, serviceID uuid.UUID) (*ExaminationService, error)
	// CompleteService flips a pending service to completed; completing an
	// already completed service is a no-op returning the stored row.
	CompleteService(ctx context.Context, serviceID uuid.UUID) (*ExaminationService, error)
}
