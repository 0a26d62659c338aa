package inference

import (
	"strings"

	"github.com/samcharles93/chatter/internal/logits"
)

// checkStop applies the stop policy after a token has been recorded.
// The end-of-sequence check wins over the others.
func checkStop(token int, text string, steps int, opts Options) (StopReason, bool) {
	switch {
	case token == logits.EndOfSequence:
		return StopEOS, true
	case opts.StopSequence != "" && strings.Contains(text, opts.StopSequence):
		return StopSequence, true
	case steps >= opts.MaxTokens:
		return StopMaxTokens, true
	}
	return "", false
}
