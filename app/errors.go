package app

import (
	"errors"
	"net/http"

	"research_portal_api/apperr"
)

// StatusOf maps an error to its HTTP status. Errors without a Kind are 500.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody renders {"error": msg} plus "field" for validation failures.
// Internal errors are not echoed to the client.
func ErrorBody(err error) H {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindInternal {
		return H{"error": "internal server error"}
	}
	body := H{"error": ae.Message}
	if ae.Field != "" {
		body["field"] = ae.Field
	}
	return body
}

func AbortWithError(c *Ctx, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusOf(err), ErrorBody(err))
}
