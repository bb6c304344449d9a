package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidStatus  = errors.New("invalid status: must be todo, in_progress, review, blocked, done, or cancelled")
	ErrMissingItemID  = errors.New("work item id must not be empty")
	ErrMissingProject = errors.New("work item project_id must not be empty")
)
