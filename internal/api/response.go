package api

import (
	"errors"
	"net/http"

	"newstrader/pkg/newstrader"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeErrorResponse writes an error response with proper HTTP status and error details.
// The error text is also attached to the request-logging writer so the access
// log line for the failed request carries it.
func writeErrorResponse(w http.ResponseWriter, httpStatus int, err error) {
	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}

	var coded *newstrader.Error
	if errors.As(err, &coded) {
		response.ErrorCode = string(coded.Code)
		httpStatus = mapErrorCodeToHTTPStatus(coded.Code)
		response.Code = httpStatus
	}

	if setter, ok := w.(interface{ SetErrorMessage(string) }); ok {
		setter.SetErrorMessage(err.Error())
	}

	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code newstrader.ErrorCode) int {
	switch code {
	case newstrader.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case newstrader.ErrCodeNotFound:
		return http.StatusNotFound
	case newstrader.ErrCodeBackend:
		return http.StatusBadGateway
	case newstrader.ErrCodeDatabase, newstrader.ErrCodeInternal:
		return http.StatusInternalServerError
	case newstrader.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
