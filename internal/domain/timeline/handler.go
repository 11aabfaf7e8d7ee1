package timeline

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nrivaa/nrivaa/internal/platform/apiresp"
	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
	"github.com/nrivaa/nrivaa/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/timeline", auth.RequireRole(auth.RolePatient))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), user.ID, Kind(c.QueryParam("kind")), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Event{}
	}
	return apiresp.OK(c, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Create(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var req ManualEventRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	e, err := h.svc.AddManual(c.Request().Context(), user.ID, req)
	if err != nil {
		return err
	}
	return apiresp.Created(c, e)
}

func (h *Handler) Delete(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.DeleteManual(c.Request().Context(), user.ID, id); err != nil {
		return err
	}
	return apiresp.Done(c)
}
