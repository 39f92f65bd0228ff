package sales

import "errors"

// Validation errors: rejected before any lookup or mutation.
var (
	ErrInvalidTaxID   = errors.New("invalid buyer tax id")
	ErrInvalidAmount  = errors.New("amount paid must be greater than zero")
	ErrInvalidOutcome = errors.New("invalid payment outcome")
)

// Domain conflict errors: rejected after lookups, before mutation.
var (
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrVehicleUnavailable = errors.New("vehicle is not available for sale")
	ErrAmountMismatch     = errors.New("amount paid does not match vehicle price")
	ErrPriceConversion    = errors.New("failed to parse monetary value")
	ErrVehicleAlreadySold = errors.New("vehicle already sold")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrAlreadyProcessed   = errors.New("sale already processed")
)
