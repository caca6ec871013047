package core

import "errors"

var (
	// ErrInvalidConfig wraps every option validation failure.
	ErrInvalidConfig = errors.New("invalid campaign configuration")
	// ErrNilRequest is returned when a campaign is started without a base request.
	ErrNilRequest = errors.New("base request is nil")
	// ErrRunnerClosed is returned by RunAll after Shutdown.
	ErrRunnerClosed = errors.New("runner has been shut down")
)
