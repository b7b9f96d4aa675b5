package api

import (
	"errors"
	"net/http"

	"github.com/loginlab/loginlab/pkg/authz"
	"github.com/loginlab/loginlab/pkg/board"
	"github.com/loginlab/loginlab/pkg/httputil"
	"github.com/loginlab/loginlab/pkg/observability"
	"github.com/loginlab/loginlab/pkg/signup"
)

// writeServiceError maps service-layer errors to HTTP responses: the most
// specific status available, defaulting to 500. "Not found" never arrives
// here; lookups report absence as a nil result, not an error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.FromContext(r.Context()).WithError(err)

	switch {
	case errors.Is(err, signup.ErrMissingField),
		errors.Is(err, authz.ErrEmptyWrite),
		errors.Is(err, board.ErrEmptyContent):
		logger.Debug("rejected invalid request")
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, signup.ErrOrgExists),
		errors.Is(err, signup.ErrUserExists):
		logger.Debug("rejected conflicting request")
		httputil.WriteConflict(w, err.Error())
	default:
		logger.Error("request failed")
		httputil.WriteInternalError(w, err)
	}
}
