package account

import (
	"github.com/labstack/echo/v4"

	"github.com/nrivaa/nrivaa/internal/platform/auth"
)

// LoadUserMiddleware attaches the onboarded account to the request context.
// It must run after the auth middleware.
func LoadUserMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := auth.PrincipalFromContext(c.Request().Context())
			if !ok {
				return next(c)
			}
			u, found, err := svc.LoadUser(c.Request().Context(), p)
			if err != nil {
				return err
			}
			if found {
				c.SetRequest(c.Request().WithContext(auth.WithCurrentUser(c.Request().Context(), u)))
				c.Set("user_role", u.Role)
				c.Set("custom_id", u.CustomID)
			}
			return next(c)
		}
	}
}
