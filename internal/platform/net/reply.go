package net

import (
	"net/http"

	perr "srcfingerprint/internal/platform/errors"
)

// Wire is the common envelope used by transports
type Wire struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// OK builds a 200 envelope
func OK(data any, reqID string) (int, Wire) {
	return http.StatusOK, Wire{
		StatusCode: http.StatusOK,
		Status:     http.StatusText(http.StatusOK),
		RequestID:  reqID,
		Data:       data,
	}
}

// Error builds an error envelope; the message is the outermost one, not the wrapped chain
func Error(err error, reqID string) (int, Wire) {
	if err == nil {
		return OK(nil, reqID)
	}
	status := HTTPStatus(err)
	msg := err.Error()
	if e, ok := perr.As(err); ok {
		msg = e.Message()
	}
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       perr.CodeOf(err).String(),
		Error:      msg,
		RequestID:  reqID,
	}
}
