package contingent

import (
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
	read := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleEmployer, auth.RoleReception, auth.RoleSpecialist))
	read.GET("/employees", h.ListEmployees)
	read.GET("/employees/:id", h.GetEmployee)

	write := api.Group("", auth.RequireRole(auth.RoleEmployer, auth.RoleClinic))
	write.POST("/employees:import", h.ImportRoster)
	write.PUT("/employees/:id", h.UpdateEmployee)
	write.DELETE("/employees/:id", h.ArchiveEmployee)
}

type importRequest struct {
	Employees []*Employee `json:"employees"`
}

func (h *Handler) ImportRoster(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.ImportRoster(c.Request().Context(), req.Employees)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetEmployee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEmployee(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEmployees(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEmployees(c.Request().Context(), c.QueryParam("department"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateEmployee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e Employee
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	if err := h.svc.UpdateEmployee(c.Request().Context(), &e); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ArchiveEmployee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.ArchiveEmployee(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
