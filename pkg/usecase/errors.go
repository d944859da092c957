package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Broadcast errors
	ErrNotBroadcastButton = errors.New("button does not trigger a broadcast")
	ErrBroadcastQueueFull = errors.New("broadcast queue is full")
	ErrBroadcastStopped   = errors.New("broadcast workers are stopped")
)
