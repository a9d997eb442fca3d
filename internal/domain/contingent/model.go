package contingent

import (
	"time"

	"github.com/google/uuid"
)

// Employee is one registry record: a worker exposed to workplace hazards who
// must pass periodic examinations.
type Employee struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	JobTitle      string     `db:"job_title" json:"job_title"`
	Department    string     `db:"department" json:"department"`
	HazardFactors []string   `db:"hazard_factors" json:"hazard_factors"`
	BirthDate     time.Time  `db:"birth_date" json:"birth_date"`
	LastExamDate  *time.Time `db:"last_exam_date" json:"last_exam_date,omitempty"`
	NextExamDate  *time.Time `db:"next_exam_date" json:"next_exam_date,omitempty"`
	Archived      bool       `db:"archived" json:"archived"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// HasHazard reports whether the employee's hazard set contains factor.
func (e *Employee) HasHazard(factor string) bool {
	for _, f := range e.HazardFactors {
		if f == factor {
			return true
		}
	}
	return false
}

// hazardsEqual compares two hazard sets ignoring order.
func hazardsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, f := range a {
		set[f]++
	}
	for _, f := range b {
		set[f]--
		if set[f] < 0 {
			return false
		}
	}
	return true
}
