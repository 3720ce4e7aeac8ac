package course

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrNotEnrolled = errors.New("not enrolled")
	ErrConflict    = errors.New("conflict")
	ErrLocked      = errors.New("item locked")
)
