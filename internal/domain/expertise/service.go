package expertise

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/metrics"
	"github.com/promed/promed/internal/platform/notification"
)

// RouteProgress is the route engine's view of an employee's examination
// visit: what is still pending and which specializations must conclude.
type RouteProgress struct {
	SheetID         uuid.UUID
	AllCompleted    bool
	PendingServices []string
	Specializations []string
}

// RouteReader exposes examination progress to the expertise engine.
type RouteReader interface {
	ProgressByEmployee(ctx context.Context, employeeID uuid.UUID) (*RouteProgress, error)
}

// EmployeeReader supplies the job profile the critical-job rule keys off.
type EmployeeReader interface {
	JobProfile(ctx context.Context, employeeID uuid.UUID) (jobTitle string, hazards []string, err error)
}

// CriticalityGate answers whether a job title is on the critical list.
type CriticalityGate interface {
	IsCriticalJob(jobTitle string) bool
}

// Service aggregates doctor conclusions into final verdicts and issues the
// follow-up referrals a verdict mandates.
type Service struct {
	conclusions ConclusionRepository
	verdicts    ExpertiseRepository
	referrals   ReferralRepository
	routes      RouteReader
	employees   EmployeeReader
	critical    CriticalityGate
	notifier    notification.Dispatcher
	metrics     *metrics.Registry
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	conclusions ConclusionRepository,
	verdicts ExpertiseRepository,
	referrals ReferralRepository,
	routes RouteReader,
	employees EmployeeReader,
	critical CriticalityGate,
	notifier notification.Dispatcher,
	m *metrics.Registry,
	logger zerolog.Logger,
) *Service {
	return &Service{
		conclusions: conclusions,
		verdicts:    verdicts,
		referrals:   referrals,
		routes:      routes,
		employees:   employees,
		critical:    critical,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitConclusion records one specialist's conclusion. A repeat submission
// for the same employee and specialization overwrites the previous one.
func (s *Service) SubmitConclusion(ctx context.Context, c *DoctorConclusion) (*DoctorConclusion, error) {
	if strings.TrimSpace(c.Specialization) == "" {
		return nil, apperr.Validation("specialization", "specialization is required")
	}
	if c.Outcome != OutcomeHealthy && c.Outcome != OutcomeUnhealthy {
		return nil, apperr.Validation("outcome", "outcome must be healthy or unhealthy")
	}
	for _, code := range c.Codes {
		if strings.TrimSpace(code.Code) == "" {
			return nil, apperr.Validation("codes", "diagnosis code must not be empty")
		}
		switch code.Class {
		case ClassObservation, ClassTreatment, ClassOccupational, ClassDisqualifying, ClassUnclassified:
		default:
			return nil, apperr.Validation("codes", "unknown code class "+string(code.Class))
		}
	}

	c.ID = uuid.New()
	c.SubmittedAt = s.now()
	if err := s.conclusions.Upsert(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("employee_id", c.EmployeeID.String()).
		Str("specialization", c.Specialization).
		Str("outcome", string(c.Outcome)).
		Msg("doctor conclusion recorded")
	return c, nil
}

func (s *Service) Conclusions(ctx context.Context, employeeID uuid.UUID) ([]DoctorConclusion, error) {
	return s.conclusions.ListByEmployee(ctx, employeeID)
}

// readiness verifies every examination on the sheet is done and every
// required specialization has a conclusion. On failure the returned error
// lists everything still missing.
func (s *Service) readiness(ctx context.Context, employeeID uuid.UUID) (*RouteProgress, []DoctorConclusion, error) {
	progress, err := s.routes.ProgressByEmployee(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	concluded, err := s.conclusions.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, name := range progress.PendingServices {
		missing = append(missing, "service: "+name)
	}
	have := make(map[string]struct{}, len(concluded))
	for i := range concluded {
		have[concluded[i].Specialization] = struct{}{}
	}
	for _, spec := range progress.Specializations {
		if _, ok := have[spec]; !ok {
			missing = append(missing, "conclusion: "+spec)
		}
	}

	if len(missing) > 0 {
		return nil, nil, &apperr.NotReadyError{EmployeeID: employeeID, Missing: missing}
	}
	return progress, concluded, nil
}

// ReadinessReport says whether an employee's examination can be finalized
// and, if not, what still stands in the way.
type ReadinessReport struct {
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

// CheckReadiness reports whether an employee has every service completed and
// every conclusion submitted. An incomplete examination is a report, not an
// error; errors only surface when the route sheet itself cannot be loaded.
func (s *Service) CheckReadiness(ctx context.Context, employeeID uuid.UUID) (*ReadinessReport, error) {
	_, _, err := s.readiness(ctx, employeeID)
	if err != nil {
		var notReady *apperr.NotReadyError
		if errors.As(err, &notReady) {
			return &ReadinessReport{Ready: false, Missing: notReady.Missing}, nil
		}
		return nil, err
	}
	return &ReadinessReport{Ready: true}, nil
}

// SuggestVerdict runs the classification without persisting anything, for
// the reviewing physician's screen.
func (s *Service) SuggestVerdict(ctx context.Context, employeeID uuid.UUID) (*Verdict, error) {
	_, concluded, err := s.readiness(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	critical, err := s.isCriticalJob(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	v := Classify(concluded, critical)
	return &v, nil
}

// FinalizeRequest carries the reviewing physician's input for a final verdict.
// Verdict is the fitness value the physician issues; left empty it defaults to
// the computed suggestion. Reason and TemporaryUntil are free-form context for
// verdicts that suspend fitness.
type FinalizeRequest struct {
	IssuedBy       string
	Verdict        Fitness
	Reason         string
	TemporaryUntil *time.Time
}

// FinalizeVerdict issues the final verdict. The health group always comes
// from classification; the fitness value is the physician's, checked against
// the closed set, and an override of the suggestion is logged. Repeat
// finalization replaces the previous verdict entirely. Referral creation runs
// after the verdict is saved and never rolls it back; its failure is logged
// and reported on the returned expertise, not as an error.
func (s *Service) FinalizeVerdict(ctx context.Context, employeeID uuid.UUID, req FinalizeRequest) (*Expertise, error) {
	if req.Verdict != "" && !req.Verdict.Valid() {
		return nil, apperr.Validation("verdict", "unknown fitness value "+string(req.Verdict))
	}

	progress, concluded, err := s.readiness(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	critical, err := s.isCriticalJob(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	v := Classify(concluded, critical)
	issued := v.Fitness
	if req.Verdict != "" {
		issued = req.Verdict
		if issued != v.Fitness {
			s.logger.Warn().
				Str("employee_id", employeeID.String()).
				Str("suggested", string(v.Fitness)).
				Str("issued", string(issued)).
				Msg("physician overrode the suggested verdict")
		}
	}
	e := &Expertise{
		ID:             uuid.New(),
		EmployeeID:     employeeID,
		SheetID:        progress.SheetID,
		HealthGroup:    v.HealthGroup,
		Fitness:        issued,
		Reason:         req.Reason,
		TemporaryUntil: req.TemporaryUntil,
		IssuedBy:       req.IssuedBy,
		IssuedAt:       s.now(),
	}
	if err := s.verdicts.Replace(ctx, e); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.VerdictsIssued.WithLabelValues(strconv.Itoa(v.HealthGroup)).Inc()
	}
	s.logger.Info().
		Str("employee_id", employeeID.String()).
		Int("health_group", e.HealthGroup).
		Str("fitness", string(e.Fitness)).
		Msg("verdict finalized")

	s.issueMandatedReferral(ctx, e, v)
	s.notifyVerdict(ctx, e)
	return e, nil
}

func (s *Service) isCriticalJob(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	jobTitle, _, err := s.employees.JobProfile(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return s.critical.IsCriticalJob(jobTitle), nil
}

// issueMandatedReferral creates the follow-up referral a verdict requires,
// unless an active referral of that type already exists.
func (s *Service) issueMandatedReferral(ctx context.Context, e *Expertise, v Verdict) {
	refType, needed := ReferralFor(v)
	if !needed {
		return
	}

	existing, err := s.referrals.ListByEmployee(ctx, e.EmployeeID)
	if err == nil {
		for _, ref := range existing {
			if ref.Type == refType && ref.Status != ReferralCancelled && ref.Status != ReferralCompleted {
				return
			}
		}
	}

	ref := &Referral{
		ID:          uuid.New(),
		EmployeeID:  e.EmployeeID,
		ExpertiseID: &e.ID,
		Type:        refType,
		Status:      ReferralCreated,
	}
	if err := s.referrals.Create(ctx, ref); err != nil {
		failure := &apperr.ReferralCreationFailure{EmployeeID: e.EmployeeID, Err: err}
		s.logger.Error().Err(failure).
			Str("employee_id", e.EmployeeID.String()).
			Str("type", string(refType)).
			Msg("mandated referral not created, verdict stands")
	}
}

func (s *Service) notifyVerdict(ctx context.Context, e *Expertise) {
	if s.notifier == nil || e.HealthGroup < 5 {
		return
	}
	err := s.notifier.Notify(ctx, notification.PartyAuthority,
		"Occupational disease verdict",
		"Employee "+e.EmployeeID.String()+" received health group "+strconv.Itoa(e.HealthGroup)+".")
	if err != nil {
		s.logger.Warn().Err(err).Msg("verdict notification failed")
	}
}

func (s *Service) GetVerdict(ctx context.Context, employeeID uuid.UUID) (*Expertise, error) {
	return s.verdicts.GetByEmployee(ctx, employeeID)
}

func (s *Service) ListVerdicts(ctx context.Context, limit, offset int) ([]*Expertise, int, error) {
	return s.verdicts.List(ctx, limit, offset)
}

// CreateReferral issues a manual referral outside the verdict-mandated flow.
func (s *Service) CreateReferral(ctx context.Context, r *Referral) (*Referral, error) {
	switch r.Type {
	case ReferralRehabilitation, ReferralProfpathology, ReferralSpecialized:
	default:
		return nil, apperr.Validation("type", "unknown referral type "+string(r.Type))
	}
	r.ID = uuid.New()
	r.Status = ReferralCreated
	if err := s.referrals.Create(ctx, r); err != nil {
		return nil, &apperr.ReferralCreationFailure{EmployeeID: r.EmployeeID, Err: err}
	}
	return r, nil
}

// TransitionReferral advances a referral along its delivery lifecycle.
func (s *Service) TransitionReferral(ctx context.Context, id uuid.UUID, to ReferralStatus) (*Referral, error) {
	ref, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !nextReferral(ref.Status, to) {
		return nil, apperr.StateConflict("referral", id.String(), string(ref.Status), string(to))
	}
	return s.referrals.UpdateStatus(ctx, id, ref.Status, to)
}

func (s *Service) ListReferrals(ctx context.Context, employeeID uuid.UUID) ([]*Referral, error) {
	return s.referrals.ListByEmployee(ctx, employeeID)
}
