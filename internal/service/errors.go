package service

import "errors"

var (
	// ErrUpdateRunning is returned when a pipeline run is requested while
	// another run is active.
	ErrUpdateRunning = errors.New("update already running")

	// ErrUnknownApp is returned for price queries naming an app outside the
	// tracked catalog.
	ErrUnknownApp = errors.New("unknown app")
)
