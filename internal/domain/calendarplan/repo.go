package calendarplan

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository is the plan store contract.
type PlanRepository interface {
	Create(ctx context.Context, p *CalendarPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*CalendarPlan, error)
	Update(ctx context.Context, p *CalendarPlan) error
	List(ctx context.Context, status Status, limit, offset int) ([]*CalendarPlan, int, error)
	// ListApproved returns every plan whose status grants route-sheet
	// coverage (approved or sent_to_authority).
	ListApproved(ctx context.Context) ([]*CalendarPlan, error)
}
