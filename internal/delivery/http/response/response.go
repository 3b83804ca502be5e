// Package response renders protocol envelopes.
// Every outcome, success or failure, is answered with HTTP 200 and the result code in head.code.
package response

import (
	"net/http"

	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/protocol"
	"authgate/internal/errors"

	"github.com/labstack/echo/v4"
)

// Success writes a success envelope.
func Success(c echo.Context, body any) error {
	return c.JSON(http.StatusOK, protocol.OK(body))
}

// Fail writes a failure envelope with an explicit code.
func Fail(c echo.Context, code int, msg string) error {
	return c.JSON(http.StatusOK, protocol.Fail(code, msg))
}

// Error writes the failure envelope for an AppError.
func Error(c echo.Context, appErr domainerrors.AppError) error {
	return Fail(c, appErr.RespCode(), appErr.Message())
}

// HandleAppError renders domain errors and hands anything else to echo's error handler.
func HandleAppError(c echo.Context, err error) error {
	if appErr, ok := domainerrors.AsAppError(err); ok {
		return Error(c, appErr)
	}

	return errors.WithStack(err)
}
