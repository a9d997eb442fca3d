package expertise

import (
	"net/http"
	"time"

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
	specialist := api.Group("", auth.RequireRole(auth.RoleSpecialist, auth.RoleClinic))
	specialist.POST("/conclusions", h.SubmitConclusion)
	specialist.GET("/employees/:id/conclusions", h.ListConclusions)

	clinic := api.Group("", auth.RequireRole(auth.RoleClinic))
	clinic.GET("/employees/:id/verdict/suggestion", h.SuggestVerdict)
	clinic.POST("/employees/:id/verdict", h.FinalizeVerdict)
	clinic.POST("/referrals", h.CreateReferral)
	clinic.POST("/referrals/:id/transition", h.TransitionReferral)

	read := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleSpecialist, auth.RoleAuthority))
	read.GET("/employees/:id/readiness", h.CheckReadiness)
	read.GET("/employees/:id/verdict", h.GetVerdict)
	read.GET("/verdicts", h.ListVerdicts)
	read.GET("/employees/:id/referrals", h.ListReferrals)
}

func employeeID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) SubmitConclusion(c echo.Context) error {
	var req DoctorConclusion
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.SubmitConclusion(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) ListConclusions(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Conclusions(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CheckReadiness(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	report, err := h.svc.CheckReadiness(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) SuggestVerdict(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.SuggestVerdict(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

type finalizeRequest struct {
	IssuedBy       string     `json:"issued_by"`
	Verdict        Fitness    `json:"verdict"`
	Reason         string     `json:"reason"`
	TemporaryUntil *time.Time `json:"temporary_until"`
}

func (h *Handler) FinalizeVerdict(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	var req finalizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.IssuedBy == "" {
		req.IssuedBy = auth.PartyFromContext(c.Request().Context())
	}
	e, err := h.svc.FinalizeVerdict(c.Request().Context(), id, FinalizeRequest{
		IssuedBy:       req.IssuedBy,
		Verdict:        req.Verdict,
		Reason:         req.Reason,
		TemporaryUntil: req.TemporaryUntil,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetVerdict(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	e, err := h.svc.GetVerdict(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListVerdicts(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVerdicts(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateReferral(c echo.Context) error {
	var req Referral
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.CreateReferral(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}

type referralTransitionRequest struct {
	Status ReferralStatus `json:"status"`
}

func (h *Handler) TransitionReferral(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req referralTransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.TransitionReferral(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) ListReferrals(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListReferrals(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
