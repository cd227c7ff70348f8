package models

import "errors"

// Error taxonomy shared by every service. Handlers map these to HTTP status
// codes; services wrap them with context via fmt.Errorf and %w.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
)
