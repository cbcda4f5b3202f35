package middleware

import (
	"errors"
	"net/http"

	"customerSegments/pkg/logger"

	jsonres "customerSegments/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escape handlers with the shared envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		logger.Error("unhandled_error", "path", c.Path(), "error", err)
	}

	var respErr error
	if c.Request().Method == http.MethodHead {
		respErr = c.NoContent(code)
	} else {
		respErr = c.JSON(code, jsonres.Error(errorCode(code), message, nil))
	}
	if respErr != nil {
		logger.Error("error_response_failed", "error", respErr)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
