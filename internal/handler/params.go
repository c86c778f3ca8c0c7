package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prn-tf/minimarket/internal/domain"
)

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.NewDomainError(domain.ErrInvalidRequest, "invalid "+name, name)
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.NewDomainError(domain.ErrInvalidRequest, name+" must be a boolean", name)
	}
	return v, nil
}

// queryQuantity parses the required quantity query parameter.
func queryQuantity(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("quantity")
	if raw == "" {
		return 0, requiredField("quantity")
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidQuantity
	}
	return q, nil
}
