package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

// authMiddleware validates the JWT then loads the user it belongs to.
// Blocked users are rejected on every request.
func authMiddleware(conf *core.Config, svc user.Service) echo.MiddlewareFunc {
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwt(activeUserMiddleware(svc)(next))
	}
}

func activeUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if mustContextUser(ctx).IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
