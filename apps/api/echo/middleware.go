package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/mpiangona/core/guard"
	"github.com/trezcool/mpiangona/core/role"
)

// requireCapability lets the request through when the role of the session holds every capability.
// It must run after Authenticator.Session.
func requireCapability(caps ...role.Capability) echo.MiddlewareFunc {
	req := guard.Require(caps...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			d := guard.Evaluate(true, getContextSession(ctx), req)
			switch d.Outcome {
			case guard.Render:
				return next(ctx)
			case guard.Redirect:
				return errUnauthorized
			default:
				return errAccessRefused
			}
		}
	}
}

// with returns a fresh chain: `base` followed by `extra`.
func with(base []echo.MiddlewareFunc, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	chain := make([]echo.MiddlewareFunc, 0, len(base)+len(extra))
	return append(append(chain, base...), extra...)
}
