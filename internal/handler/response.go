package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/service"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

// amount marshals as a JSON number with exactly two fractional digits.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a {"detail": ...} error response.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// Client-facing messages for domain errors.
var errorDetails = map[error]string{
	domain.ErrUserAlreadyExists:  "Username already exists",
	domain.ErrInvalidCredentials: "Invalid username or password",
	domain.ErrUnauthenticated:    "Not authenticated",
	domain.ErrUserNotFound:       "User not found",
	domain.ErrProductNotFound:    "Product not found",
	domain.ErrOfferNotFound:      "Offer not found",
	domain.ErrItemNotInCart:      "Item not found in cart",
}

// respondError maps a service error to a status code and writes it.
// Unexpected errors are logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrProductUnavailable),
		domain.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOfferNotFound),
		errors.Is(err, domain.ErrItemNotInCart),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCartBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Cart is busy, please retry")
		return
	default:
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, "Internal server error")
		return
	}

	writeError(w, status, errorDetail(err))
}

func errorDetail(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	for sentinel, detail := range errorDetails {
		if errors.Is(err, sentinel) {
			return detail
		}
	}
	return err.Error()
}

// decodeJSON reads a JSON body into dst, limited to maxBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.NewDomainError(domain.ErrInvalidRequest, "request body too large", "")
		case errors.Is(err, io.EOF):
			return domain.NewDomainError(domain.ErrInvalidRequest, "request body is required", "")
		default:
			return domain.NewDomainError(domain.ErrInvalidRequest, "invalid JSON body", "")
		}
	}
	return nil
}

// requiredField builds the error for a missing JSON field.
func requiredField(name string) error {
	return domain.NewDomainError(domain.ErrInvalidRequest, name+" is required", name)
}
