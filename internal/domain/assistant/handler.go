package assistant

import (
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
	g := api.Group("/assistant", auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	g.POST("/chat", h.Chat)
	g.GET("/history", h.History)
	g.DELETE("/history", h.ClearHistory)
}

func (h *Handler) Chat(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	resp, err := h.svc.Chat(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return apiresp.OK(c, resp)
}

func (h *Handler) History(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), user.ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Message{}
	}
	return apiresp.OK(c, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ClearHistory(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	if err := h.svc.ClearHistory(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return apiresp.Done(c)
}
