// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/ayesh156/eco-system-sub002/internal/settlement"
	"github.com/ayesh156/eco-system-sub002/internal/shared"
)

// Sentinel errors for domain layers.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, settlement.ErrInvalidAmount), errors.Is(err, settlement.ErrOverpayment):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, settlement.ErrInvoiceNotFound):
		Problem(w, http.StatusConflict, "Stale Snapshot", "invoice state changed, refresh and retry")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
