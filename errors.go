package synthetics

import "errors"

var (
	// Run lifecycle errors.
	ErrRunActive   = errors.New("synthetics: run already active")
	ErrRunNotFound = errors.New("synthetics: run not found")

	// Option validation errors.
	ErrUnknownReporter = errors.New("synthetics: unknown reporter kind")
	ErrInvalidSchedule = errors.New("synthetics: invalid monitor schedule")
	ErrInvalidMatch    = errors.New("synthetics: invalid match expression")

	// Store errors.
	ErrStoreClosed     = errors.New("synthetics: store closed")
	ErrMigrationFailed = errors.New("synthetics: migration failed")

	// Artifact cache errors.
	ErrCacheRemoved = errors.New("synthetics: artifact cache removed")

	// Event stream errors.
	ErrBusClosed    = errors.New("synthetics: event bus closed")
	ErrStreamClosed = errors.New("synthetics: stream server closed")
)
