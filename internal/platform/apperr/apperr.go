// Package apperr defines the typed error taxonomy shared by the workflow
// engines. Every rejected operation surfaces one of these types so callers can
// render a specific, actionable message; nothing is collapsed into a generic
// failure.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports missing or malformed required fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a single field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// StateConflictError reports a transition attempted from a state that does not
// permit it. Current and Requested always name both sides of the conflict.
type StateConflictError struct {
	Resource  string
	ID        string
	Current   string
	Requested string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s: cannot apply %q while in state %q",
		e.Resource, e.ID, e.Requested, e.Current)
}

// StateConflict builds a StateConflictError.
func StateConflict(resource, id, current, requested string) *StateConflictError {
	return &StateConflictError{Resource: resource, ID: id, Current: current, Requested: requested}
}

// NoRouteDefinedError reports a job title with no service mapping in the
// derivation rule table. Callers must never turn this into a silent empty
// route sheet.
type NoRouteDefinedError struct {
	JobTitle string
}

func (e *NoRouteDefinedError) Error() string {
	return fmt.Sprintf("no examination route defined for job title %q", e.JobTitle)
}

// PlanNotApprovedError reports a route sheet requested for an employee and
// date that no approved calendar plan covers.
type PlanNotApprovedError struct {
	EmployeeID uuid.UUID
	VisitDate  time.Time
}

func (e *PlanNotApprovedError) Error() string {
	return fmt.Sprintf("no approved calendar plan covers employee %s on %s",
		e.EmployeeID, e.VisitDate.Format("2006-01-02"))
}

// NotReadyError reports a verdict requested before every required service and
// conclusion is complete. Missing lists the outstanding items verbatim.
type NotReadyError struct {
	EmployeeID uuid.UUID
	Missing    []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("employee %s is not ready for a verdict, missing: %s",
		e.EmployeeID, strings.Join(e.Missing, "; "))
}

// ReferralCreationFailure wraps an error from best-effort referral creation
// after a verdict save. It is logged as a warning and never propagates to the
// caller, and never rolls back the verdict write.
type ReferralCreationFailure struct {
	EmployeeID uuid.UUID
	Err        error
}

func (e *ReferralCreationFailure) Error() string {
	return fmt.Sprintf("referral creation failed for employee %s: %v", e.EmployeeID, e.Err)
}

func (e *ReferralCreationFailure) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStateConflict reports whether err is (or wraps) a StateConflictError.
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}
