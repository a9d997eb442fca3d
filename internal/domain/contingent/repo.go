package contingent

import (
	"context"

	"github.com/google/uuid"
)

// EmployeeRepository is the registry's persistence contract.
type EmployeeRepository interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	Update(ctx context.Context, e *Employee) error
	Archive(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, department string, limit, offset int) ([]*Employee, int, error)
}
