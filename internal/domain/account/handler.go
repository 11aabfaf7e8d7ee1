package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrivaa/nrivaa/internal/platform/apiresp"
	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	onboarding := api.Group("/onboarding", auth.RequirePrincipal())
	onboarding.POST("/patient", h.OnboardPatient)
	onboarding.POST("/doctor", h.OnboardDoctor)

	api.GET("/me", h.Me, auth.RequirePrincipal())
	api.DELETE("/me", h.DeleteAccount, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	api.PUT("/profile/contact", h.UpdateContact, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
}

func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	return p, nil
}

func (h *Handler) OnboardPatient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in PatientOnboarding
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.OnboardPatient(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return apiresp.Created(c, u)
}

func (h *Handler) OnboardDoctor(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in DoctorOnboarding
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.OnboardDoctor(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return apiresp.Created(c, u)
}

func (h *Handler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Me(c.Request().Context(), p.Subject)
	if err != nil {
		return err
	}
	return apiresp.OK(c, u)
}

func (h *Handler) UpdateContact(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var in Contact
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.UpdateContact(c.Request().Context(), user.ID, in)
	if err != nil {
		return err
	}
	return apiresp.OK(c, u)
}

// DeleteAccount accepts an optional JSON body with a reason.
func (h *Handler) DeleteAccount(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	var req DeleteRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
	}
	if err := h.svc.DeleteAccount(c.Request().Context(), user.ID, req); err != nil {
		return err
	}
	return apiresp.Done(c)
}
