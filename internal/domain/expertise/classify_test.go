package expertise

import "testing"

func healthy(spec string) DoctorConclusion {
	return DoctorConclusion{Specialization: spec, Outcome: OutcomeHealthy}
}

func unhealthy(spec string, codes ...DiagnosisCode) DoctorConclusion {
	return DoctorConclusion{Specialization: spec, Outcome: OutcomeUnhealthy, Codes: codes}
}

func TestClassifyDecisionTable(t *testing.T) {
	cases := []struct {
		name        string
		conclusions []DoctorConclusion
		critical    bool
		wantGroup   int
		wantFitness Fitness
	}{
		{
			name:        "all healthy no codes",
			conclusions: []DoctorConclusion{healthy("терапевт"), healthy("лор")},
			wantGroup:   1,
			wantFitness: FitnessFit,
		},
		{
			name: "healthy with incidental codes",
			conclusions: []DoctorConclusion{
				{Specialization: "терапевт", Outcome: OutcomeHealthy,
					Codes: []DiagnosisCode{{Code: "H52.1", Class: ClassObservation}}},
			},
			wantGroup:   2,
			wantFitness: FitnessFit,
		},
		{
			name: "unhealthy observation",
			conclusions: []DoctorConclusion{
				unhealthy("лор", DiagnosisCode{Code: "H90.3", Class: ClassObservation}),
			},
			wantGroup:   3,
			wantFitness: FitnessTemporarilyUnfit,
		},
		{
			name:        "unhealthy without codes",
			conclusions: []DoctorConclusion{unhealthy("терапевт")},
			wantGroup:   4,
			wantFitness: FitnessTemporarilyUnfit,
		},
		{
			name: "unhealthy treatment class",
			conclusions: []DoctorConclusion{
				unhealthy("терапевт", DiagnosisCode{Code: "I10", Class: ClassTreatment}),
			},
			wantGroup:   4,
			wantFitness: FitnessTemporarilyUnfit,
		},
		{
			name: "unhealthy unclassified code",
			conclusions: []DoctorConclusion{
				unhealthy("терапевт", DiagnosisCode{Code: "R00", Class: ClassUnclassified}),
			},
			wantGroup:   4,
			wantFitness: FitnessTemporarilyUnfit,
		},
		{
			name: "occupational disease",
			conclusions: []DoctorConclusion{
				unhealthy("лор", DiagnosisCode{Code: "H83.3", Class: ClassOccupational}),
			},
			wantGroup:   5,
			wantFitness: FitnessTemporarilyUnfit,
		},
		{
			name: "disqualifying on critical job",
			conclusions: []DoctorConclusion{
				unhealthy("офтальмолог", DiagnosisCode{Code: "H54.0", Class: ClassDisqualifying}),
			},
			critical:    true,
			wantGroup:   6,
			wantFitness: FitnessPermanentlyUnfit,
		},
		{
			name: "disqualifying on ordinary job",
			conclusions: []DoctorConclusion{
				unhealthy("офтальмолог", DiagnosisCode{Code: "H54.0", Class: ClassDisqualifying}),
			},
			wantGroup:   5,
			wantFitness: FitnessTemporarilyUnfit,
		},
		{
			name: "worst finding wins",
			conclusions: []DoctorConclusion{
				healthy("терапевт"),
				unhealthy("лор", DiagnosisCode{Code: "H90.3", Class: ClassObservation}),
				unhealthy("невролог", DiagnosisCode{Code: "G62.8", Class: ClassOccupational}),
			},
			wantGroup:   5,
			wantFitness: FitnessTemporarilyUnfit,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Classify(tc.conclusions, tc.critical)
			if v.HealthGroup != tc.wantGroup || v.Fitness != tc.wantFitness {
				t.Fatalf("got group %d fitness %s, want group %d fitness %s",
					v.HealthGroup, v.Fitness, tc.wantGroup, tc.wantFitness)
			}
		})
	}
}

// Whatever the inputs, the verdict lands on one of the three closed fitness
// values; there is no fourth category.
func TestClassifyStaysInClosedFitnessSet(t *testing.T) {
	classes := []CodeClass{
		ClassObservation, ClassTreatment, ClassOccupational,
		ClassDisqualifying, ClassUnclassified,
	}
	for _, class := range classes {
		for _, critical := range []bool{false, true} {
			v := Classify([]DoctorConclusion{
				unhealthy("терапевт", DiagnosisCode{Code: "Z00", Class: class}),
			}, critical)
			if !v.Fitness.Valid() {
				t.Errorf("class %s critical=%v produced fitness %q outside the closed set",
					class, critical, v.Fitness)
			}
		}
	}
}

// Notes must never influence the verdict; only outcomes and code classes do.
func TestClassifyIgnoresNoteText(t *testing.T) {
	withNote := []DoctorConclusion{
		{Specialization: "терапевт", Outcome: OutcomeHealthy,
			Note: "подозрение на профзаболевание, нетрудоспособен"},
	}
	v := Classify(withNote, false)
	if v.HealthGroup != 1 || v.Fitness != FitnessFit {
		t.Fatalf("note text leaked into classification: %+v", v)
	}
}

func TestReferralFor(t *testing.T) {
	cases := []struct {
		group    int
		wantType ReferralType
		want     bool
	}{
		{1, "", false},
		{2, "", false},
		{3, "", false},
		{4, ReferralRehabilitation, true},
		{5, ReferralProfpathology, true},
		{6, ReferralProfpathology, true},
	}
	for _, tc := range cases {
		got, ok := ReferralFor(Verdict{HealthGroup: tc.group})
		if ok != tc.want || got != tc.wantType {
			t.Errorf("group %d: got (%s, %v), want (%s, %v)",
				tc.group, got, ok, tc.wantType, tc.want)
		}
	}
}
