package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a run is started while another is in flight.
	ErrBusy = errors.New("generation already in progress")
	// ErrQueueFull is returned when the prompt queue has no free slot.
	ErrQueueFull = errors.New("prompt queue is full")
	// ErrClosed is returned for prompts submitted after the controller stopped.
	ErrClosed = errors.New("controller is closed")
	// ErrEmptyPrompt is returned when the prompt encodes to no tokens.
	ErrEmptyPrompt = errors.New("prompt encoded to no tokens")
)

// PreconditionError reports a missing collaborator. No run is started.
type PreconditionError struct {
	Collaborator string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("no %s available", e.Collaborator)
}

// Stages at which a run can fail.
const (
	StageEncode    = "encode"
	StageForward   = "forward"
	StageNormalize = "normalize"
	StageCancelled = "cancelled"
)

// RunFailedError is returned when a run aborts before reaching a stop
// condition. No result is published for a failed run.
type RunFailedError struct {
	Stage string
	Err   error
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run failed at %s: %v", e.Stage, e.Err)
}

func (e *RunFailedError) Unwrap() error {
	return e.Err
}
