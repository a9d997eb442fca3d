package calendarplan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/promed/promed/internal/platform/auth"
)

// The role written to approval history comes from the verified token, not
// from whatever the request body claims.
func TestTransitionRecordsTokenRole(t *testing.T) {
	svc, _ := newTestService(newMockPlanRepo())
	p := mustCreate(t, svc, testScope(uuid.New()))
	h := NewHandler(svc)

	body := `{"action":"submit","actor":"Петров","role":"authority"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := context.WithValue(req.Context(), auth.RolesKey, []string{auth.RoleEmployer})
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Transition(c); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	got, err := svc.GetPlan(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	last := got.History[len(got.History)-1]
	if last.Role != auth.RoleEmployer {
		t.Fatalf("history recorded role %q, want the token's %q", last.Role, auth.RoleEmployer)
	}
	if last.Actor != "Петров" {
		t.Fatalf("actor from the body should stand: %q", last.Actor)
	}
}
