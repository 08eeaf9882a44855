package service

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient escrow balance")
	// ErrAlreadyProcessed marks replays of approve/reject/pay against
	// an already-resolved row. Callers treat it as a successful no-op.
	ErrAlreadyProcessed = errors.New("already processed")
)
