package logits

import (
	"fmt"
	"math"
)

// CountPolicy controls how Occurrences.Record updates an existing entry.
type CountPolicy int

const (
	// CountIncrement adds one per emission, so the frequency penalty grows
	// with every repeat.
	CountIncrement CountPolicy = iota
	// CountLegacy stores 1 on first emission and never increments afterwards.
	// Every previously seen token is then penalised as if it appeared once.
	CountLegacy
)

func (p CountPolicy) String() string {
	switch p {
	case CountIncrement:
		return "increment"
	case CountLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("CountPolicy(%d)", int(p))
	}
}

// ParseCountPolicy maps a config string to a CountPolicy.
func ParseCountPolicy(s string) (CountPolicy, error) {
	switch s {
	case "", "increment":
		return CountIncrement, nil
	case "legacy":
		return CountLegacy, nil
	default:
		return CountIncrement, fmt.Errorf("unknown count policy %q", s)
	}
}

// Occurrences tracks how often each token has been emitted during one run.
type Occurrences struct {
	policy CountPolicy
	counts map[int]int
}

// NewOccurrences returns an empty table using the given policy.
func NewOccurrences(policy CountPolicy) *Occurrences {
	return &Occurrences{
		policy: policy,
		counts: make(map[int]int),
	}
}

// Record notes one emission of token.
func (o *Occurrences) Record(token int) {
	n, ok := o.counts[token]
	switch {
	case !ok:
		o.counts[token] = 1
	case o.policy == CountIncrement:
		o.counts[token] = n + 1
	}
}

// Count returns the recorded count for token, zero if never emitted.
func (o *Occurrences) Count(token int) int {
	return o.counts[token]
}

// Len returns the number of distinct tokens recorded.
func (o *Occurrences) Len() int {
	return len(o.counts)
}

// ApplyPenalties masks the end-of-sequence logit and subtracts the presence
// and frequency penalties for every token already emitted. logits is
// modified in place. Token ids outside the vocabulary are ignored.
func ApplyPenalties(logits []float32, occ *Occurrences, cfg SamplerConfig) {
	if len(logits) == 0 {
		return
	}
	logits[EndOfSequence] = float32(math.Inf(-1))
	if occ == nil {
		return
	}
	for tok, n := range occ.counts {
		if tok < 0 || tok >= len(logits) {
			continue
		}
		logits[tok] -= cfg.PresencePenalty + float32(n)*cfg.FrequencyPenalty
	}
}
