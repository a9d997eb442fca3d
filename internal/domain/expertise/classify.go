package expertise

// Verdict is the classification outcome before it is persisted.
type Verdict struct {
	HealthGroup int     `json:"health_group"`
	Fitness     Fitness `json:"fitness"`
}

// classRank orders code classes by verdict severity.
func classRank(c CodeClass) int {
	switch c {
	case ClassObservation:
		return 1
	case ClassUnclassified, ClassTreatment:
		return 2
	case ClassOccupational:
		return 3
	case ClassDisqualifying:
		return 4
	}
	return 0
}

// Classify derives the health group and fitness from the full conclusion set.
// Only conclusion outcomes and structured code classes participate; free-text
// notes never do. criticalJob marks job titles where a disqualifying finding
// means permanent unfitness.
//
// Decision table, worst finding wins:
//
//	all healthy, no codes                      -> group 1, fit
//	all healthy, some codes                    -> group 2, fit
//	unhealthy, worst class observation         -> group 3, temporarily unfit
//	unhealthy, worst class treatment/unclassified -> group 4, temporarily unfit
//	unhealthy, worst class occupational        -> group 5, temporarily unfit
//	disqualifying code, critical job           -> group 6, permanently unfit
func Classify(conclusions []DoctorConclusion, criticalJob bool) Verdict {
	var anyUnhealthy, anyCodes bool
	worst := 0
	for i := range conclusions {
		c := &conclusions[i]
		if c.Outcome == OutcomeUnhealthy {
			anyUnhealthy = true
		}
		for _, code := range c.Codes {
			anyCodes = true
			if r := classRank(code.Class); r > worst {
				worst = r
			}
		}
	}

	if worst == classRank(ClassDisqualifying) && criticalJob {
		return Verdict{HealthGroup: 6, Fitness: FitnessPermanentlyUnfit}
	}

	if !anyUnhealthy {
		if anyCodes {
			return Verdict{HealthGroup: 2, Fitness: FitnessFit}
		}
		return Verdict{HealthGroup: 1, Fitness: FitnessFit}
	}

	// Any unhealthy conclusion means the employee is not cleared for work
	// until follow-up resolves it; only a critical-job disqualification is
	// permanent.
	switch worst {
	case classRank(ClassObservation):
		return Verdict{HealthGroup: 3, Fitness: FitnessTemporarilyUnfit}
	case classRank(ClassOccupational):
		return Verdict{HealthGroup: 5, Fitness: FitnessTemporarilyUnfit}
	case classRank(ClassDisqualifying):
		// Disqualifying finding outside a critical job reads as an
		// occupational disease.
		return Verdict{HealthGroup: 5, Fitness: FitnessTemporarilyUnfit}
	default:
		return Verdict{HealthGroup: 4, Fitness: FitnessTemporarilyUnfit}
	}
}

// ReferralFor maps a verdict to the follow-up it mandates, if any. Groups 1-3
// need none; group 4 goes to rehabilitation; groups 5 and 6 go to the
// profpathology center.
func ReferralFor(v Verdict) (ReferralType, bool) {
	switch {
	case v.HealthGroup >= 5:
		return ReferralProfpathology, true
	case v.HealthGroup == 4:
		return ReferralRehabilitation, true
	}
	return "", false
}
