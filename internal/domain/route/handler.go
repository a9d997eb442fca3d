package route

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
	read := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleReception, auth.RoleSpecialist))
	read.GET("/route-sheets", h.ListSheets)
	read.GET("/route-sheets/:id", h.GetSheet)
	read.GET("/route-rules", h.GetRules)

	write := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleReception))
	write.POST("/route-sheets", h.DeriveRoute)
	write.POST("/route-sheets/:id/cancel", h.CancelSheet)
}

type deriveRequest struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	VisitDate  string    `json:"visit_date"`
}

func (h *Handler) DeriveRoute(c echo.Context) error {
	var req deriveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	visit, err := time.Parse("2006-01-02", req.VisitDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "visit_date must be YYYY-MM-DD")
	}
	sheet, err := h.svc.DeriveRoute(c.Request().Context(), req.EmployeeID, visit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sheet)
}

func (h *Handler) GetSheet(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sheet, err := h.svc.GetSheet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sheet)
}

func (h *Handler) ListSheets(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSheets(c.Request().Context(), SheetStatus(c.QueryParam("status")), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CancelSheet(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sheet, err := h.svc.CancelSheet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sheet)
}

func (h *Handler) GetRules(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Rules())
}
