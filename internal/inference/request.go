package inference

import (
	"fmt"

	"github.com/samcharles93/chatter/internal/logits"
)

// Options configures a Loop. It is fixed for the lifetime of the loop and
// safe to share between goroutines by value.
type Options struct {
	Sampler     logits.SamplerConfig
	CountPolicy logits.CountPolicy

	MaxTokens      int
	MaxStepRetries int

	UserLabel      string
	AssistantLabel string
	StopSequence   string
}

// DefaultOptions returns the stock generation settings.
func DefaultOptions() Options {
	return Options{
		Sampler:        logits.DefaultSamplerConfig(),
		CountPolicy:    logits.CountIncrement,
		MaxTokens:      1024,
		MaxStepRetries: 8,
		UserLabel:      "User",
		AssistantLabel: "Assistant",
		StopSequence:   "\n\n",
	}
}

// Validate rejects options the loop cannot run with.
func (o Options) Validate() error {
	if err := o.Sampler.Validate(); err != nil {
		return err
	}
	if o.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", o.MaxTokens)
	}
	if o.MaxStepRetries < 0 {
		return fmt.Errorf("max_step_retries must not be negative, got %d", o.MaxStepRetries)
	}
	if o.UserLabel == "" || o.AssistantLabel == "" {
		return fmt.Errorf("role labels must not be empty")
	}
	return nil
}

// RequestOptions holds optional overrides. Nil fields keep the base value.
type RequestOptions struct {
	Seed             *int64
	TopP             *float64
	Temperature      *float64
	PresencePenalty  *float64
	FrequencyPenalty *float64
	CountPolicy      *logits.CountPolicy

	MaxTokens      *int
	MaxStepRetries *int

	UserLabel      *string
	AssistantLabel *string
	StopSequence   *string
}

// ResolveOptions layers the set fields of opts over base.
func ResolveOptions(base Options, opts RequestOptions) Options {
	out := base

	if opts.Seed != nil {
		out.Sampler.Seed = *opts.Seed
	}
	if opts.TopP != nil {
		out.Sampler.TopP = float32(*opts.TopP)
	}
	if opts.Temperature != nil {
		out.Sampler.Temperature = float32(*opts.Temperature)
	}
	if opts.PresencePenalty != nil {
		out.Sampler.PresencePenalty = float32(*opts.PresencePenalty)
	}
	if opts.FrequencyPenalty != nil {
		out.Sampler.FrequencyPenalty = float32(*opts.FrequencyPenalty)
	}
	if opts.CountPolicy != nil {
		out.CountPolicy = *opts.CountPolicy
	}
	if opts.MaxTokens != nil {
		out.MaxTokens = *opts.MaxTokens
	}
	if opts.MaxStepRetries != nil {
		out.MaxStepRetries = *opts.MaxStepRetries
	}
	if opts.UserLabel != nil {
		out.UserLabel = *opts.UserLabel
	}
	if opts.AssistantLabel != nil {
		out.AssistantLabel = *opts.AssistantLabel
	}
	if opts.StopSequence != nil {
		out.StopSequence = *opts.StopSequence
	}

	return out
}
