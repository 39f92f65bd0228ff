package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/motortrade/salesd/pkg/sales"
)

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// statusForError maps the sales error taxonomy onto HTTP statuses:
// validation failures are bad requests, missing records are not found,
// domain conflicts are conflicts, anything else is internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, sales.ErrInvalidTaxID),
		errors.Is(err, sales.ErrInvalidAmount),
		errors.Is(err, sales.ErrInvalidOutcome),
		errors.Is(err, sales.ErrAmountMismatch),
		errors.Is(err, sales.ErrPriceConversion):
		return http.StatusBadRequest
	case errors.Is(err, sales.ErrVehicleNotFound),
		errors.Is(err, sales.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, sales.ErrVehicleUnavailable),
		errors.Is(err, sales.ErrVehicleAlreadySold),
		errors.Is(err, sales.ErrAlreadyProcessed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
