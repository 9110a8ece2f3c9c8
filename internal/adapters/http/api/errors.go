package api

import (
	"errors"
	"net/http"

	"github.com/okian/triage/internal/adapters/repository"
	service "github.com/okian/triage/internal/app"
	"github.com/okian/triage/internal/domain/dependency"
	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrMissingID  = errors.New("missing report id")
)

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), service.IsBadInput(err), errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrDataIntegrity):
		return http.StatusUnprocessableEntity, "data_integrity"
	case errors.Is(err, routing.ErrRoutingValidation):
		return http.StatusBadGateway, "routing_validation"
	case errors.Is(err, dependency.ErrTimeout):
		return http.StatusGatewayTimeout, "dependency_timeout"
	case errors.Is(err, dependency.ErrUnavailable):
		return http.StatusBadGateway, "dependency_unavailable"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, routing.ErrNoCatalog):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, service.ErrNoReportStore):
		return http.StatusNotImplemented, "persistence_disabled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
