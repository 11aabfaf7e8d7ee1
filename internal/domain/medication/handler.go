package medication

import (
	"strconv"

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
	g := api.Group("/medications", auth.RequireRole(auth.RolePatient))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var active *bool
	if v := c.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.Validation("active must be true or false")
		}
		active = &b
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), user.ID, active, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Medication{}
	}
	return apiresp.OK(c, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid medication id")
	}
	m, err := h.svc.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return err
	}
	return apiresp.OK(c, m)
}

func (h *Handler) Create(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	m, err := h.svc.Create(c.Request().Context(), user.ID, in)
	if err != nil {
		return err
	}
	return apiresp.Created(c, m)
}

func (h *Handler) Update(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid medication id")
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	m, err := h.svc.Update(c.Request().Context(), user.ID, id, in)
	if err != nil {
		return err
	}
	return apiresp.OK(c, m)
}

func (h *Handler) Delete(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid medication id")
	}
	if err := h.svc.Delete(c.Request().Context(), user.ID, id); err != nil {
		return err
	}
	return apiresp.Done(c)
}
