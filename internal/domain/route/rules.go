package route

import (
	"encoding/json"
	"os"

	"github.com/promed/promed/internal/platform/apperr"
)

// ServiceSpec is one examination a rule prescribes: the billing/order code,
// a display name, the specialization that signs it off, and the station where
// the patient queues for it.
type ServiceSpec struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Station        string `json:"station"`
}

// RuleTable maps job titles to their base service sets and hazard factors to
// the services they add on top. It is loaded once at startup and treated as
// immutable afterwards.
type RuleTable struct {
	Jobs    map[string][]ServiceSpec `json:"jobs"`
	Hazards map[string][]ServiceSpec `json:"hazards"`
	// CriticalJobs lists job titles where a disqualifying finding means
	// permanent unfitness.
	CriticalJobs []string `json:"critical_jobs,omitempty"`
}

// IsCriticalJob reports whether the job title is on the critical list.
func (t *RuleTable) IsCriticalJob(jobTitle string) bool {
	for _, j := range t.CriticalJobs {
		if j == jobTitle {
			return true
		}
	}
	return false
}

// LoadRuleTable reads the rule table from a JSON file.
func LoadRuleTable(path string) (*RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t RuleTable
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	if len(t.Jobs) == 0 {
		return nil, apperr.Validation("jobs", "rule table defines no job titles")
	}
	return &t, nil
}

// Derive computes the service list for a job title and its hazard factors:
// the job's base services first, then each hazard's additions, deduplicated
// by code. Hazards only ever add services. The rule file's order is kept as
// written — it is the order the patient physically walks the route in — so
// the same inputs always produce the same list.
func (t *RuleTable) Derive(jobTitle string, hazards []string) ([]ServiceSpec, error) {
	base, ok := t.Jobs[jobTitle]
	if !ok {
		return nil, &apperr.NoRouteDefinedError{JobTitle: jobTitle}
	}

	seen := make(map[string]struct{}, len(base))
	out := make([]ServiceSpec, 0, len(base))
	add := func(specs []ServiceSpec) {
		for _, s := range specs {
			if _, dup := seen[s.Code]; dup {
				continue
			}
			seen[s.Code] = struct{}{}
			out = append(out, s)
		}
	}

	add(base)
	for _, h := range hazards {
		add(t.Hazards[h])
	}
	return out, nil
}
