package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownStep is reported (never returned from a turn) when a session holds
// a step outside StepOrder.
var ErrUnknownStep = errors.New("unknown flow step")
