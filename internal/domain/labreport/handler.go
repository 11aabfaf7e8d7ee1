package labreport

import (
	"encoding/json"

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
	g := api.Group("/lab-reports", auth.RequireRole(auth.RolePatient))
	g.GET("", h.List)
	g.POST("", h.Upload)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/analyze", h.Analyze)
}

// Upload expects multipart/form-data with a "file" part, "title",
// "test_date" and an optional "values" JSON array.
func (h *Handler) Upload(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	in := UploadInput{
		Title:    c.FormValue("title"),
		TestDate: c.FormValue("test_date"),
	}
	if raw := c.FormValue("values"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Values); err != nil {
			return apperr.Validation("values must be a JSON array of test results")
		}
	}

	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("could not read uploaded file")
	}
	defer f.Close()

	rep, err := h.svc.Upload(c.Request().Context(), user.ID, in, File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}, f)
	if err != nil {
		return err
	}
	return apiresp.Created(c, rep)
}

func (h *Handler) List(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), user.ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Report{}
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
		return apperr.Validation("invalid lab report id")
	}
	rep, err := h.svc.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return err
	}
	return apiresp.OK(c, rep)
}

func (h *Handler) Delete(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid lab report id")
	}
	if err := h.svc.Delete(c.Request().Context(), user.ID, id); err != nil {
		return err
	}
	return apiresp.Done(c)
}

func (h *Handler) Analyze(c echo.Context) error {
	user, err := auth.UserFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid lab report id")
	}
	rep, err := h.svc.Analyze(c.Request().Context(), user.ID, id)
	if err != nil {
		return err
	}
	return apiresp.OK(c, rep)
}
