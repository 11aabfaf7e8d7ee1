package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks the onboarded user has one of
// the given roles. It must run after the user has been loaded into the
// request context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUserFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "onboarding required")
			}
			for _, required := range roles {
				if user.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequirePrincipal rejects requests that reached the handler without an
// authenticated identity.
func RequirePrincipal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFromContext(c.Request().Context()); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
			}
			return next(c)
		}
	}
}

// UserFrom returns the onboarded user behind the request, or a 403 when the
// caller has not finished onboarding.
func UserFrom(c echo.Context) (CurrentUser, error) {
	u, ok := CurrentUserFromContext(c.Request().Context())
	if !ok {
		return CurrentUser{}, echo.NewHTTPError(http.StatusForbidden, "onboarding required")
	}
	return u, nil
}
