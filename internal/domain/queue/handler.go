package queue

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/promed/promed/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleClinic, auth.RoleReception, auth.RoleSpecialist))
	read.GET("/queue", h.Board)
	read.GET("/queue/:id", h.GetEntry)

	reception := api.Group("", auth.RequireRole(auth.RoleReception, auth.RoleClinic))
	reception.POST("/queue", h.Admit)
	reception.POST("/queue/:id/requeue", h.Requeue)
	reception.POST("/queue/:id/cancel", h.Cancel)

	station := api.Group("", auth.RequireRole(auth.RoleSpecialist, auth.RoleReception, auth.RoleClinic))
	station.POST("/queue/:id/call", h.Call)
	station.POST("/queue/:id/start", h.Start)
	station.POST("/queue/:id/complete", h.Complete)
	station.POST("/queue/:id/skip", h.Skip)
}

type admitRequest struct {
	ServiceID uuid.UUID `json:"service_id"`
	Priority  Priority  `json:"priority"`
}

func (h *Handler) Admit(c echo.Context) error {
	var req admitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Admit(c.Request().Context(), req.ServiceID, req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Board(c echo.Context) error {
	entries, err := h.svc.Board(c.Request().Context(), c.QueryParam("station"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEntry(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) act(c echo.Context, fn func(c echo.Context, id uuid.UUID) (*QueueEntry, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := fn(c, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Call(c echo.Context) error {
	return h.act(c, func(c echo.Context, id uuid.UUID) (*QueueEntry, error) {
		return h.svc.Call(c.Request().Context(), id)
	})
}

func (h *Handler) Start(c echo.Context) error {
	return h.act(c, func(c echo.Context, id uuid.UUID) (*QueueEntry, error) {
		return h.svc.Start(c.Request().Context(), id)
	})
}

func (h *Handler) Complete(c echo.Context) error {
	return h.act(c, func(c echo.Context, id uuid.UUID) (*QueueEntry, error) {
		return h.svc.Complete(c.Request().Context(), id)
	})
}

type skipRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) Skip(c echo.Context) error {
	return h.act(c, func(c echo.Context, id uuid.UUID) (*QueueEntry, error) {
		var req skipRequest
		if err := c.Bind(&req); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return h.svc.Skip(c.Request().Context(), id, req.Confirm)
	})
}

func (h *Handler) Requeue(c echo.Context) error {
	return h.act(c, func(c echo.Context, id uuid.UUID) (*QueueEntry, error) {
		return h.svc.Requeue(c.Request().Context(), id)
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.act(c, func(c echo.Context, id uuid.UUID) (*QueueEntry, error) {
		return h.svc.Cancel(c.Request().Context(), id)
	})
}
