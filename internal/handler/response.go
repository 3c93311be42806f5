package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/pricing"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidPlanID),
		errors.Is(err, service.ErrMissingStops),
		errors.Is(err, service.ErrInvalidCoordinate),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidPlanName),
		errors.Is(err, service.ErrPlanHasNoEntries),
		errors.Is(err, service.ErrInvalidWeekday),
		errors.Is(err, service.ErrInvalidTimeOfDay),
		errors.Is(err, pricing.ErrUnknownTariff),
		errors.Is(err, pricing.ErrUnknownVehicleType),
		errors.Is(err, pricing.ErrNoStops):
		return http.StatusBadRequest

	// Permission errors - Forbidden
	case errors.Is(err, service.ErrNotOrderParty),
		errors.Is(err, service.ErrNotOrderRider),
		errors.Is(err, service.ErrNotAssignedDriver),
		errors.Is(err, service.ErrNotPlanOwner):
		return http.StatusForbidden

	// State errors - Conflict
	case errors.Is(err, service.ErrInvalidOrderState),
		errors.Is(err, service.ErrOrderNotCompleted),
		errors.Is(err, service.ErrOrderNotSearching),
		errors.Is(err, service.ErrDriverNotEligible):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
