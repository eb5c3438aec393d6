package domain

import "errors"

var (
	// ErrTaskNotFound is returned when a task does not exist or is already completed.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyTitle is returned when a task title is blank after trimming.
	ErrEmptyTitle = errors.New("title is required")
	// ErrUnknownPreference is returned for preference names outside the fixed set.
	ErrUnknownPreference = errors.New("unknown preference")
)
