package calendarplan

import (
	"time"

	"github.com/google/uuid"
)

// Status is the plan's position in the approval flow. The set is closed;
// transition logic switches exhaustively over it.
type Status string

const (
	StatusDraft                   Status = "draft"
	StatusPendingClinicApproval   Status = "pending_clinic_approval"
	StatusPendingEmployerApproval Status = "pending_employer_approval"
	StatusApproved                Status = "approved"
	StatusRejected                Status = "rejected"
	StatusSentToAuthority         Status = "sent_to_authority"
)

// Action is a requested transition.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionClinicApprove   Action = "clinic_approve"
	ActionEmployerApprove Action = "employer_approve"
	ActionReject          Action = "reject"
	ActionResubmit        Action = "resubmit"
	ActionSendToAuthority Action = "send_to_authority"
)

// Scope is one department sub-scope inside a plan: which employees are
// covered and over which dates. Sub-scopes share the plan's single status.
type Scope struct {
	Department  string      `json:"department"`
	EmployeeIDs []uuid.UUID `json:"employee_ids"`
	DateFrom    time.Time   `json:"date_from"`
	DateTo      time.Time   `json:"date_to"`
}

// covers reports whether the scope includes the employee on the given date.
func (s *Scope) covers(employeeID uuid.UUID, date time.Time) bool {
	if date.Before(s.DateFrom) || date.After(s.DateTo) {
		return false
	}
	for _, id := range s.EmployeeIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// ApprovalRecord is one history entry appended on every transition.
type ApprovalRecord struct {
	Actor  string    `json:"actor"`
	Role   string    `json:"role"`
	Action Action    `json:"action"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// CalendarPlan is a cohort-level examination plan moving through bilateral
// approval. Once any party has approved it the plan is never deleted, only
// superseded by a new one.
type CalendarPlan struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	Scopes          []Scope          `db:"scopes" json:"scopes"`
	HazardFactors   []string         `db:"hazard_factors" json:"hazard_factors"`
	Specialists     []string         `db:"specialists" json:"specialists"`
	Status          Status           `db:"status" json:"status"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	History         []ApprovalRecord `db:"history" json:"history"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// Covers reports whether this plan authorizes a route sheet for the employee
// on the given visit date. Only plans that passed through approval count;
// sending to the authority does not revoke coverage.
func (p *CalendarPlan) Covers(employeeID uuid.UUID, date time.Time) bool {
	if p.Status != StatusApproved && p.Status != StatusSentToAuthority {
		return false
	}
	for i := range p.Scopes {
		if p.Scopes[i].covers(employeeID, date) {
			return true
		}
	}
	return false
}

// Editable reports whether the clinic may modify scope contents.
func (p *CalendarPlan) Editable() bool {
	return p.Status == StatusDraft || p.Status == StatusRejected
}

// next computes the status an action leads to from current. The second result
// is false when the pair is not a legal transition.
func next(current Status, action Action) (Status, bool) {
	switch action {
	case ActionSubmit:
		if current == StatusDraft {
			return StatusPendingClinicApproval, true
		}
	case ActionClinicApprove:
		if current == StatusDraft || current == StatusPendingClinicApproval {
			return StatusPendingEmployerApproval, true
		}
	case ActionEmployerApprove:
		if current == StatusPendingEmployerApproval {
			return StatusApproved, true
		}
	case ActionReject:
		if current == StatusPendingClinicApproval || current == StatusPendingEmployerApproval {
			return StatusRejected, true
		}
	case ActionResubmit:
		if current == StatusRejected {
			return StatusPendingClinicApproval, true
		}
	case ActionSendToAuthority:
		if current == StatusApproved {
			return StatusSentToAuthority, true
		}
	}
	return current, false
}
