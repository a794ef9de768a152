package service

import (
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// RegisterErrorHandler register custom error handler.
func RegisterErrorHandler(e *echo.Echo, logger log.Logger) {
	e.HTTPErrorHandler = NewHTTPErrorHandler(NewErrorCodeToStatusCodeMaps(), logger).Handler
}

// NewErrorCodeToStatusCodeMaps creates an error code to http status mapping.
func NewErrorCodeToStatusCodeMaps() map[string]int {
	return map[string]int{
		ErrBadParameter:        http.StatusBadRequest,
		ErrEntityNotFound:      http.StatusNotFound,
		ErrNotAuthenticated:    http.StatusUnauthorized,
		ErrFatalAdmission:      http.StatusForbidden,
		ErrTransientRecord:     http.StatusServiceUnavailable,
		ErrOrchestrationRace:   http.StatusServiceUnavailable,
		ErrConflict:            http.StatusConflict,
		ErrInternalServerError: http.StatusInternalServerError,
	}
}

// HTTPErrorHandler is an error handler.
type HTTPErrorHandler struct {
	errorCodeToHTTPStatusCodeMap map[string]int
	logger                       log.Logger
}

// NewHTTPErrorHandler creates a new instance of the HTTPErrorHandler.
func NewHTTPErrorHandler(errorCodeToStatusCodeMaps map[string]int, logger log.Logger) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		errorCodeToHTTPStatusCodeMap: errorCodeToStatusCodeMaps,
		logger:                       logger,
	}
}

func (h *HTTPErrorHandler) getStatusCode(errorCode string) int {
	if status, ok := h.errorCodeToHTTPStatusCodeMap[errorCode]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Handler handles error returned by echo Handlers.
func (h *HTTPErrorHandler) Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	myErr := ToMyError(err)
	if myErr == nil {
		myErr = NewMyError(ErrInternalServerError, "an internal server error has occurred", err)
	}

	var statusCode int
	var he *echo.HTTPError
	if errors.As(err, &he) && ToMyError(err) == nil {
		if herr, ok := he.Internal.(*echo.HTTPError); ok {
			he = herr
		}
		codeStr := ErrInternalServerError
		var requestError *openapi3filter.RequestError
		if errors.As(he.Internal, &requestError) {
			codeStr = ErrBadParameter
		} else {
			codeStr = codeForStatus(he.Code)
		}

		m, _ := he.Message.(string)
		myErr = NewMyError(codeStr, m, err)
		statusCode = he.Code
	} else {
		he = nil
		statusCode = h.getStatusCode(myErr.Code)
	}

	if statusCode >= http.StatusInternalServerError {
		level.Error(h.logger).Log("msg", "HTTP request error", "path", c.Path(), "err", err)
	} else {
		level.Debug(h.logger).Log("msg", "HTTP request refused", "path", c.Path(), "err", err)
	}

	if c.Request().Method == http.MethodHead && he != nil {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(statusCode, ErrResponse{Error: myErr})
}

// codeForStatus maps echo's own errors (unknown route, bad method) onto error codes.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed:
		return ErrBadParameter
	case http.StatusNotFound:
		return ErrEntityNotFound
	case http.StatusUnauthorized:
		return ErrNotAuthenticated
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrInternalServerError
	}
}

// ErrResponse from server.
type ErrResponse struct {
	Error *MyError `json:"error,omitempty"`
}
