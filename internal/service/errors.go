package service

import "errors"

// Sentinel errors returned by services. Handlers map them to HTTP statuses
// with errors.Is; wrap with fmt.Errorf("%w: ...") to attach detail.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service failed")
)
