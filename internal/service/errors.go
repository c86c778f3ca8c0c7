// Package service provides business logic services for Mini Market.
package service

import "errors"

// Common service errors. Business rule violations use the domain sentinels.
var (
	// ErrCartBusy indicates the per-user cart lock could not be taken in time.
	ErrCartBusy = errors.New("cart is busy, please retry")

	// ErrInternalError wraps storage and infrastructure failures.
	ErrInternalError = errors.New("internal server error")
)
