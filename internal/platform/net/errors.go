package net

import (
	"net/http"

	perr "srcfingerprint/internal/platform/errors"
)

// HTTPStatus maps a project error to http status
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return perr.HTTPStatusCode(perr.CodeOf(err))
}
