package session

import "errors"

var (
	// ErrLocked is returned by Open when another run holds the state lock.
	ErrLocked = errors.New("another bidsprep session holds the state lock")
	// ErrClosed is returned for calls after Close.
	ErrClosed = errors.New("session closed")
	// ErrUnknownGroup is returned for folders that have not been loaded.
	ErrUnknownGroup = errors.New("folder not loaded")
	// ErrUnknownRecording is returned for paths that are not loaded recordings.
	ErrUnknownRecording = errors.New("not a loaded recording")
)
