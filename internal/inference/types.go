package inference

import (
	"fmt"
	"time"
)

// ConversationState is the model's opaque memory for one run. The loop
// never inspects it; it only hands it back to the model that created it.
type ConversationState = any

// SequenceModel is the autoregressive model driven by the loop.
type SequenceModel interface {
	// NewState returns a fresh conversation state.
	NewState() ConversationState
	// Forward feeds tokens into st and returns logits for the next token.
	Forward(tokens []int, st ConversationState) ([]float32, error)
	// Normalize turns logits into a probability distribution.
	Normalize(logits []float32) ([]float32, error)
}

// StreamFunc receives each decoded piece of text as it is produced.
type StreamFunc func(piece string)

// PromptSubmitted is one user submission.
type PromptSubmitted struct {
	Text string
}

// State is the position of a Loop in its run lifecycle.
type State int

const (
	StateIdle State = iota
	StateEncoding
	StateStepping
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEncoding:
		return "encoding"
	case StateStepping:
		return "stepping"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StopReason records which condition ended a run.
type StopReason string

const (
	StopEOS       StopReason = "eos"
	StopSequence  StopReason = "stop_sequence"
	StopMaxTokens StopReason = "max_tokens"
)

type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Result is the output of a completed run.
type Result struct {
	Text       string
	StopReason StopReason
	Stats      Stats
}
