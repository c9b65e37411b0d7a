package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account blocked")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// fieldErrors maps each invalid field to its message.
func fieldErrors(flds []core.FieldError) map[string]string {
	m := make(map[string]string, len(flds))
	for _, fld := range flds {
		m[fld.Field] = fld.Error
	}
	return m
}

// classify maps a domain or echo error to its HTTP status and response body.
// ok is false for unexpected errors, which are answered with a 500.
func classify(err error, translator ut.Translator) (code int, message interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message, true
		}
		if inner, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = inner
		}
		return cause.Code, cause.Message, true

	case validator.ValidationErrors:
		flds := make([]core.FieldError, 0, len(cause))
		for _, fe := range cause {
			flds = append(flds, core.FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
		}
		return http.StatusBadRequest, fieldErrors(flds), true

	case *core.ValidationError:
		if len(cause.Fields) > 0 {
			return http.StatusBadRequest, fieldErrors(cause.Fields), true
		}
		return http.StatusBadRequest, cause.Error(), true

	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error(), true
	case *core.ConflictError:
		return http.StatusConflict, cause.Error(), true
	case *core.AuthorizationError:
		return http.StatusForbidden, cause.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// requestUser returns the authenticated user, or what the JWT claims tell about them.
func requestUser(ctx echo.Context) user.User {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr
	}
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.Username = claims.Username
		usr.Email = claims.Email
	}
	return usr
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler answering every failed request.
// Unexpected errors are logged with the requesting user; a core shutdown error calls signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, ok := classify(err, translator)
		if !ok {
			msg := message.(string)
			logger.Error(msg, errors.Wrap(err, msg), requestUser(ctx))
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, isStr := message.(string); isStr {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
