package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/documents"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/leads"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

// Stable error codes returned in response bodies. Clients match on
// these, not on message text.
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeRateLimited     = "rate_limited"
	CodePaymentRequired = "subscription_required"
	CodeInternal        = "internal_error"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// mapError translates internal errors to a status and stable code.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, tenant.ErrMissingTenant), errors.Is(err, leads.ErrMissingTenant):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, tenant.ErrUnknownBot):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, leads.ErrNotFound), errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
