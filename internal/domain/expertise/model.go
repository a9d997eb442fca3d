package expertise

import (
	"time"

	"github.com/google/uuid"
)

// ConclusionOutcome is a single doctor's judgement.
type ConclusionOutcome string

const (
	OutcomeHealthy   ConclusionOutcome = "healthy"
	OutcomeUnhealthy ConclusionOutcome = "unhealthy"
)

// CodeClass classifies a structured diagnosis code for verdict purposes.
// Classification reads only these classes, never free-text notes.
type CodeClass string

const (
	ClassObservation   CodeClass = "observation"
	ClassTreatment     CodeClass = "treatment"
	ClassOccupational  CodeClass = "occupational"
	ClassDisqualifying CodeClass = "disqualifying"
	ClassUnclassified  CodeClass = "unclassified"
)

// DiagnosisCode is one coded finding attached to a conclusion.
type DiagnosisCode struct {
	Code  string    `json:"code"`
	Class CodeClass `json:"class"`
}

// DoctorConclusion is one specialist's verdict on one employee. Re-submitting
// for the same employee and specialization replaces the previous conclusion.
type DoctorConclusion struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	EmployeeID     uuid.UUID         `db:"employee_id" json:"employee_id"`
	Specialization string            `db:"specialization" json:"specialization"`
	Outcome        ConclusionOutcome `db:"outcome" json:"outcome"`
	Codes          []DiagnosisCode   `json:"codes,omitempty"`
	Note           string            `db:"note" json:"note,omitempty"`
	DoctorName     string            `db:"doctor_name" json:"doctor_name"`
	SubmittedAt    time.Time         `db:"submitted_at" json:"submitted_at"`
}

// Fitness is the final work-fitness category. The set is closed: a verdict is
// fit, temporarily unfit, or permanently unfit.
type Fitness string

const (
	FitnessFit              Fitness = "fit"
	FitnessTemporarilyUnfit Fitness = "temporarily_unfit"
	FitnessPermanentlyUnfit Fitness = "permanently_unfit"
)

// Valid reports whether f is one of the closed fitness values.
func (f Fitness) Valid() bool {
	switch f {
	case FitnessFit, FitnessTemporarilyUnfit, FitnessPermanentlyUnfit:
		return true
	}
	return false
}

// Expertise is the final aggregated verdict for one examination visit. A
// repeat finalization fully replaces the previous verdict.
type Expertise struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	EmployeeID     uuid.UUID  `db:"employee_id" json:"employee_id"`
	SheetID        uuid.UUID  `db:"sheet_id" json:"sheet_id"`
	HealthGroup    int        `db:"health_group" json:"health_group"`
	Fitness        Fitness    `db:"fitness" json:"fitness"`
	Reason         string     `db:"reason" json:"reason,omitempty"`
	TemporaryUntil *time.Time `db:"temporary_until" json:"temporary_until,omitempty"`
	IssuedBy       string     `db:"issued_by" json:"issued_by"`
	IssuedAt       time.Time  `db:"issued_at" json:"issued_at"`
}

// ReferralType names the follow-up institution.
type ReferralType string

const (
	ReferralRehabilitation ReferralType = "rehabilitation"
	ReferralProfpathology  ReferralType = "profpathology"
	ReferralSpecialized    ReferralType = "specialized"
)

// ReferralStatus is the referral's delivery lifecycle.
type ReferralStatus string

const (
	ReferralCreated    ReferralStatus = "created"
	ReferralSent       ReferralStatus = "sent"
	ReferralAccepted   ReferralStatus = "accepted"
	ReferralInProgress ReferralStatus = "in_progress"
	ReferralCompleted  ReferralStatus = "completed"
	ReferralCancelled  ReferralStatus = "cancelled"
)

// Referral is a follow-up order issued with (or after) a verdict.
type Referral struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	EmployeeID  uuid.UUID      `db:"employee_id" json:"employee_id"`
	ExpertiseID *uuid.UUID     `db:"expertise_id" json:"expertise_id,omitempty"`
	Type        ReferralType   `db:"type" json:"type"`
	Status      ReferralStatus `db:"status" json:"status"`
	Institution string         `db:"institution" json:"institution,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// nextReferral computes the referral status transition table.
func nextReferral(current, requested ReferralStatus) bool {
	switch current {
	case ReferralCreated:
		return requested == ReferralSent || requested == ReferralCancelled
	case ReferralSent:
		return requested == ReferralAccepted || requested == ReferralCancelled
	case ReferralAccepted:
		return requested == ReferralInProgress || requested == ReferralCancelled
	case ReferralInProgress:
		return requested == ReferralCompleted || requested == ReferralCancelled
	}
	return false
}
