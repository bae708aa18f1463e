package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/member"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/core/syncer"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
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
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
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
		case *core.RemoteWriteError:
			// surfaced verbatim; the snapshot was left untouched
			code = http.StatusBadGateway
			message = origErr.Error()
		case *syncer.SyncError:
			code = http.StatusBadGateway
			message = map[string]interface{}{
				"error":  "resync incomplete; retry with POST /v1/refresh",
				"failed": origErr.Collections(),
			}
		default:
			switch origErr {
			case syncer.ErrBusy:
				code = http.StatusConflict
				message = origErr.Error()
			case record.ErrUnknownKind:
				code = http.StatusNotFound
				message = origErr.Error()
			case member.ErrAuthenticationFailed:
				code = http.StatusBadRequest
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if !ctx.Response().Committed {
			_ = ctx.JSON(code, echo.Map{"error": message})
		}
	}
}
