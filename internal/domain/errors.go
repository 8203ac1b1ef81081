package domain

import "errors"

var (
	// ErrRoomClosed is returned when no test exists or the test is unpublished.
	ErrRoomClosed = errors.New("exam room closed")
	// ErrInvalidRoomCode is returned when the submitted room code does not match.
	ErrInvalidRoomCode = errors.New("invalid room code")
	// ErrMissingIdentification is returned when name or class is blank.
	ErrMissingIdentification = errors.New("missing identification")
	// ErrNoActiveTest indicates a teacher operation that needs an existing test.
	ErrNoActiveTest = errors.New("no active test")
	// ErrAuthFailed is the generic teacher authentication failure.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrGeneration indicates the AI collaborator failed or returned
	// malformed content; no test is created in that case.
	ErrGeneration = errors.New("test generation failed")
)
