package api

import (
	"net/http"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
)

// statusForError maps a domain error category to an HTTP status.
func statusForError(err error) int {
	switch core.GetCategory(err) {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatDelivery:
		return http.StatusNotFound
	case core.ErrCatProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
