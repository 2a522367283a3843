package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/guard"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/notification"
	"github.com/trezcool/mpiangona/core/qrcode"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/setting"
	"github.com/trezcool/mpiangona/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionExpired       = echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errAccessRefused        = echo.NewHTTPError(http.StatusForbidden, guard.MsgAccessRefused)
)

// sentinels maps the domain errors to their HTTP status.
var sentinels = []struct {
	err  error
	code int
}{
	{user.ErrNotFound, http.StatusNotFound},
	{member.ErrNotFound, http.StatusNotFound},
	{group.ErrNotFound, http.StatusNotFound},
	{group.ErrNotMember, http.StatusNotFound},
	{dues.ErrNotFound, http.StatusNotFound},
	{contribution.ErrNotFound, http.StatusNotFound},
	{role.ErrNotFound, http.StatusNotFound},
	{setting.ErrNotFound, http.StatusNotFound},
	{notification.ErrNotFound, http.StatusNotFound},
	{group.ErrAlreadyMember, http.StatusConflict},
	{dues.ErrConflict, http.StatusConflict},
	{role.ErrConflict, http.StatusConflict},
	{qrcode.ErrInvalidPayload, http.StatusBadRequest},
	{qrcode.ErrEmptyID, http.StatusBadRequest},
	{user.ErrInvalidResetToken, http.StatusBadRequest},
	{user.ErrSessionNotFound, http.StatusUnauthorized},
	{user.ErrSessionExpired, http.StatusUnauthorized},
}

func sentinelStatus(err error) (int, string, bool) {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code, s.err.Error(), true
		}
	}
	return 0, "", false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.RenderingError:
			code = http.StatusInternalServerError
			body := echo.Map{"error": "could not generate " + origErr.What}
			if origErr.Total > 0 {
				body["generated"] = origErr.Succeeded
				body["total"] = origErr.Total
			}
			message = body
			logger.Error(origErr.Error(), err, contextUser(ctx))
		default:
			if c, msg, ok := sentinelStatus(err); ok {
				code = c
				message = msg
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			if ctx.Echo().Debug {
				message = err.Error()
			}
			logger.Error(msg, errors.Wrap(err, msg), contextUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// contextUser is the user logged with server errors, when known.
func contextUser(ctx echo.Context) user.User {
	if usr, err := getContextUser(ctx); err == nil {
		return usr
	}
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.Username = claims.Username
	}
	return usr
}
