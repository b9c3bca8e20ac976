package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin || claims.IsFaculty {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// denylistMiddleware rejects tokens of accounts whose sessions have been
// revoked (eg. declined after approval). Denylist outages fail open; the
// approval status still gates every sign-in.
func denylistMiddleware(denylist core.SessionDenylist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if denied, err := denylist.IsDenied(ctx.Request().Context(), claims.Subject); err == nil && denied {
				return errSessionRevoked
			}
			return next(ctx)
		}
	}
}
