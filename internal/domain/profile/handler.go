package profile

import (
	"net/url"

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
	patient := api.Group("/profile/patient", auth.RequireRole(auth.RolePatient))
	patient.GET("", h.GetPatient)
	patient.PUT("", h.UpdatePatient)

	doctor := api.Group("/profile/doctor", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("", h.GetDoctor)
	doctor.PUT("", h.UpdateDoctor)

	directory := api.Group("/doctors", auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	directory.GET("", h.ListDoctors)
	directory.GET("/:custom_id", h.GetDoctorCard)
}

func (h *Handler) GetPatient(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return apiresp.OK(c, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), user.ID, in)
	if err != nil {
		return err
	}
	return apiresp.OK(c, p)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return apiresp.OK(c, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var in DoctorInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), user.ID, in)
	if err != nil {
		return err
	}
	return apiresp.OK(c, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), c.QueryParam("specialization"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*DoctorCard{}
	}
	return apiresp.OK(c, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetDoctorCard(c echo.Context) error {
	id, err := url.PathUnescape(c.Param("custom_id"))
	if err != nil {
		return apperr.Validation("invalid doctor id")
	}
	card, err := h.svc.GetDoctorCard(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return apiresp.OK(c, card)
}
