package calendarplan

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   Status
		ok     bool
	}{
		{StatusDraft, ActionSubmit, StatusPendingClinicApproval, true},
		{StatusDraft, ActionClinicApprove, StatusPendingEmployerApproval, true},
		{StatusPendingClinicApproval, ActionClinicApprove, StatusPendingEmployerApproval, true},
		{StatusPendingClinicApproval, ActionReject, StatusRejected, true},
		{StatusPendingEmployerApproval, ActionEmployerApprove, StatusApproved, true},
		{StatusPendingEmployerApproval, ActionReject, StatusRejected, true},
		{StatusRejected, ActionResubmit, StatusPendingClinicApproval, true},
		{StatusApproved, ActionSendToAuthority, StatusSentToAuthority, true},

		{StatusDraft, ActionEmployerApprove, StatusDraft, false},
		{StatusApproved, ActionReject, StatusApproved, false},
		{StatusApproved, ActionEmployerApprove, StatusApproved, false},
		{StatusSentToAuthority, ActionSubmit, StatusSentToAuthority, false},
		{StatusRejected, ActionEmployerApprove, StatusRejected, false},
	}
	for _, tc := range cases {
		got, ok := next(tc.from, tc.action)
		if ok != tc.ok || got != tc.want {
			t.Errorf("next(%s, %s) = (%s, %v), want (%s, %v)",
				tc.from, tc.action, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCoversRequiresApprovedStatus(t *testing.T) {
	emp := uuid.New()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := &CalendarPlan{
		Scopes: []Scope{{
			Department:  "Цех 1",
			EmployeeIDs: []uuid.UUID{emp},
			DateFrom:    date.AddDate(0, 0, -5),
			DateTo:      date.AddDate(0, 0, 5),
		}},
	}

	for _, st := range []Status{StatusDraft, StatusPendingClinicApproval, StatusPendingEmployerApproval, StatusRejected} {
		p.Status = st
		if p.Covers(emp, date) {
			t.Errorf("status %s must not grant coverage", st)
		}
	}
	for _, st := range []Status{StatusApproved, StatusSentToAuthority} {
		p.Status = st
		if !p.Covers(emp, date) {
			t.Errorf("status %s must grant coverage", st)
		}
	}
}

func TestCoversScopeBounds(t *testing.T) {
	emp := uuid.New()
	other := uuid.New()
	p := &CalendarPlan{
		Status: StatusApproved,
		Scopes: []Scope{{
			Department:  "Цех 1",
			EmployeeIDs: []uuid.UUID{emp},
			DateFrom:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			DateTo:      time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		}},
	}

	if !p.Covers(emp, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("first day of range must be covered")
	}
	if !p.Covers(emp, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Error("last day of range must be covered")
	}
	if p.Covers(emp, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("date after range must not be covered")
	}
	if p.Covers(other, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Error("employee outside the scope must not be covered")
	}
}
