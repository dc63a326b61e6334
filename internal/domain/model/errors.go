package model

import "errors"

// Validation errors for drafts.
var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrInvalidCategory = errors.New("category must be one of work, personal, study, other")
	ErrMissingTime     = errors.New("start and end are required")
)
