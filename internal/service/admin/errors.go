package admin

import "errors"

var (
	ErrCourtConflict   = errors.New("court already exists")
	ErrInvalidCategory = errors.New("invalid court category")
	ErrInvalidRate     = errors.New("hourly rate must be positive")
)
