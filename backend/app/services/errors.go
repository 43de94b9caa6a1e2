package services

import "errors"

// Every rejection a caller can hit maps to exactly one sentinel, so the HTTP
// layer (and the dashboard behind it) can tell a policy block from a syntax
// problem from a full queue.
var (
	ErrUnauthenticated = errors.New("valid session or API key required")
	ErrForbidden       = errors.New("admin access required")
	ErrInvalidInput    = errors.New("validation error")
	ErrCommandBlocked  = errors.New("command blocked for safety reasons")
	ErrRateLimited     = errors.New("too many pending commands for device")
	ErrNotFound        = errors.New("command not found or already completed")
)
