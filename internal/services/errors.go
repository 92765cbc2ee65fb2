// internal/services/errors.go
package services

import "errors"

// Sentinel errors let handlers map service failures onto HTTP statuses
// with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrNotAuthorized     = errors.New("caller not authorized")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflicting state")
	ErrInsufficientFunds = errors.New("insufficient funds for transaction")
	ErrChainUnavailable  = errors.New("blockchain node unavailable")
)
