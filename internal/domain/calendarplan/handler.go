package calendarplan

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/promed/promed/internal/platform/auth"
	"github.com/promed/promed/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleEmployer, auth.RoleAuthority))
	read.GET("/plans", h.ListPlans)
	read.GET("/plans/:id", h.GetPlan)
	read.GET("/plans/:id/history", h.GetHistory)

	write := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleEmployer))
	write.POST("/plans", h.CreatePlan)
	write.PUT("/plans/:id", h.UpdatePlan)
	write.POST("/plans/:id/transition", h.Transition)
}

type createPlanRequest struct {
	Scopes        []Scope  `json:"scopes"`
	HazardFactors []string `json:"hazard_factors"`
	Specialists   []string `json:"specialists"`
}

func (h *Handler) CreatePlan(c echo.Context) error {
	var req createPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreatePlan(c.Request().Context(), &CalendarPlan{
		Scopes:        req.Scopes,
		HazardFactors: req.HazardFactors,
		Specialists:   req.Specialists,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.History)
}

func (h *Handler) ListPlans(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPlans(c.Request().Context(), Status(c.QueryParam("status")), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req createPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdatePlan(c.Request().Context(), id, req.Scopes, req.HazardFactors, req.Specialists)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Transition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if req.Actor == "" {
		req.Actor = auth.PartyFromContext(ctx)
	}
	req.Role = actingRole(ctx)
	p, err := h.svc.Transition(ctx, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// actingRole picks the approval-relevant role from the verified token claims.
// The body's claims are never trusted for this.
func actingRole(ctx context.Context) string {
	held := auth.RolesFromContext(ctx)
	for _, want := range []string{auth.RoleClinic, auth.RoleEmployer, auth.RoleAuthority} {
		for _, r := range held {
			if r == want {
				return r
			}
		}
	}
	if len(held) > 0 {
		return held[0]
	}
	return ""
}
