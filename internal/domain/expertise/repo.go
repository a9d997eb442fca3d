package expertise

import (
	"context"

	"github.com/google/uuid"
)

// ConclusionRepository stores per-specialization doctor conclusions. Upsert is
// last-write-wins on (employee, specialization).
type ConclusionRepository interface {
	Upsert(ctx context.Context, c *DoctorConclusion) error
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]DoctorConclusion, error)
}

// ExpertiseRepository stores final verdicts, one current verdict per employee.
type ExpertiseRepository interface {
	// Replace removes any previous verdict for the employee and stores e.
	Replace(ctx context.Context, e *Expertise) error
	GetByEmployee(ctx context.Context, employeeID uuid.UUID) (*Expertise, error)
	List(ctx context.Context, limit, offset int) ([]*Expertise, int, error)
}

// ReferralRepository stores follow-up referrals.
type ReferralRepository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, to ReferralStatus) (*Referral, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*Referral, error)
}
