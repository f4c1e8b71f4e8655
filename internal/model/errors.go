package model

import "errors"

// Error taxonomy shared by services and handlers. Callers wrap these with
// fmt.Errorf("%w: ...") and match them with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrKeyUnavailable = errors.New("sender or encryption key not found")
)
