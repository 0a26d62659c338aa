package inference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samcharles93/chatter/internal/logger"
	"github.com/samcharles93/chatter/internal/logits"
	"github.com/samcharles93/chatter/internal/tokenizer"
)

// Loop drives a SequenceModel one token at a time until a stop condition
// fires. A Loop runs at most one prompt at a time; each run gets its own
// conversation state, which is dropped when the run ends.
type Loop struct {
	model   SequenceModel
	tok     tokenizer.Tokenizer
	opts    Options
	sampler *logits.Sampler
	log     logger.Logger

	mu    sync.Mutex
	state State
}

// NewLoop validates its collaborators and options. A nil model or tokenizer
// yields a *PreconditionError. log may be nil.
func NewLoop(model SequenceModel, tok tokenizer.Tokenizer, opts Options, log logger.Logger) (*Loop, error) {
	if model == nil {
		return nil, &PreconditionError{Collaborator: "model"}
	}
	if tok == nil {
		return nil, &PreconditionError{Collaborator: "tokenizer"}
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Loop{
		model:   model,
		tok:     tok,
		opts:    opts,
		sampler: logits.NewSampler(opts.Sampler),
		log:     log,
		state:   StateIdle,
	}, nil
}

// Options returns the options the loop was built with.
func (l *Loop) Options() Options {
	return l.opts
}

// State reports where the loop is in its current run.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateEncoding || l.state == StateStepping {
		return ErrBusy
	}
	l.state = StateEncoding
	return nil
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run generates a reply to prompt. See RunStream.
func (l *Loop) Run(ctx context.Context, prompt string) (*Result, error) {
	return l.RunStream(ctx, prompt, nil)
}

// RunStream generates a reply to prompt, passing every decoded piece to
// stream when it is non-nil. It returns ErrBusy if another run is active and
// a *RunFailedError if encoding, the forward pass, or normalisation fails
// for good, or if ctx is cancelled between steps.
func (l *Loop) RunStream(ctx context.Context, prompt string, stream StreamFunc) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.setState(StateDone)

	start := time.Now()
	text := FormatPrompt(l.opts.UserLabel, prompt, l.opts.AssistantLabel)
	ids, err := safeEncode(l.tok, []byte(text))
	if err == nil && len(ids) == 0 {
		err = ErrEmptyPrompt
	}
	if err != nil {
		l.log.Warn("encode failed", "error", err)
		return nil, &RunFailedError{Stage: StageEncode, Err: err}
	}

	st, err := safeNewState(l.model)
	if err != nil {
		return nil, &RunFailedError{Stage: StageForward, Err: err}
	}
	l.setState(StateStepping)
	l.log.Debug("run started", "prompt_tokens", len(ids))

	var (
		sb      strings.Builder
		occ     = logits.NewOccurrences(l.opts.CountPolicy)
		input   = ids
		steps   int
		retries int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, &RunFailedError{Stage: StageCancelled, Err: err}
		}

		lg, err := safeForward(l.model, input, st)
		if err != nil {
			l.log.Warn("forward failed", "step", steps, "error", err)
			return nil, &RunFailedError{Stage: StageForward, Err: err}
		}
		logits.ApplyPenalties(lg, occ, l.opts.Sampler)

		probs, err := safeNormalize(l.model, lg)
		if err != nil {
			retries++
			if retries > l.opts.MaxStepRetries {
				return nil, &RunFailedError{Stage: StageNormalize, Err: err}
			}
			l.log.Debug("normalize failed, retrying step", "step", steps, "attempt", retries, "error", err)
			continue
		}
		retries = 0

		next := l.sampler.Sample(probs)

		piece, err := safeDecode(l.tok, next)
		switch {
		case err != nil:
			l.log.Debug("decode failed", "token", next, "error", err)
		case !utf8.Valid(piece):
			l.log.Debug("decoded token is not valid utf-8", "token", next)
		default:
			sb.Write(piece)
			if stream != nil && len(piece) > 0 {
				stream(string(piece))
			}
		}

		occ.Record(next)
		input = []int{next}
		steps++

		if reason, ok := checkStop(next, sb.String(), steps, l.opts); ok {
			stats := Stats{
				TokensGenerated: steps,
				Duration:        time.Since(start),
			}
			if stats.Duration.Seconds() > 0 {
				stats.TPS = float64(stats.TokensGenerated) / stats.Duration.Seconds()
			}
			l.log.Debug("run finished", logger.KeyTokens, steps, logger.KeyStop, reason, "duration", stats.Duration)
			return &Result{
				Text:       sb.String(),
				StopReason: reason,
				Stats:      stats,
			}, nil
		}
	}
}
