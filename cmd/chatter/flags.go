package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/chatter/internal/inference"
	"github.com/samcharles93/chatter/internal/logits"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	// fileConfig is loaded once by the root command's Before hook.
	fileConfig Config
)

// genSettings collects the generation and model flags shared by run and serve.
type genSettings struct {
	topP             float64
	temp             float64
	presencePenalty  float64
	frequencyPenalty float64
	maxTokens        int64
	maxStepRetries   int64
	seed             int64
	legacyCounts     bool
	userLabel        string
	assistantLabel   string

	vocabPath string
	hidden    int64
	modelSeed int64
}

func generationFlags(s *genSettings) []cli.Flag {
	def := inference.DefaultOptions()
	return []cli.Flag{
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "nucleus sampling mass in (0, 1]",
			Value:       float64(def.Sampler.TopP),
			Destination: &s.topP,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature",
			Value:       float64(def.Sampler.Temperature),
			Destination: &s.temp,
		},
		&cli.Float64Flag{
			Name:        "presence-penalty",
			Usage:       "flat penalty for any token already generated",
			Value:       float64(def.Sampler.PresencePenalty),
			Destination: &s.presencePenalty,
		},
		&cli.Float64Flag{
			Name:        "frequency-penalty",
			Usage:       "penalty per previous occurrence of a token",
			Value:       float64(def.Sampler.FrequencyPenalty),
			Destination: &s.frequencyPenalty,
		},
		&cli.Int64Flag{
			Name:        "max-tokens",
			Aliases:     []string{"n"},
			Usage:       "maximum tokens generated per reply",
			Value:       int64(def.MaxTokens),
			Destination: &s.maxTokens,
		},
		&cli.Int64Flag{
			Name:        "max-step-retries",
			Usage:       "retries of a step whose normalisation fails",
			Value:       int64(def.MaxStepRetries),
			Destination: &s.maxStepRetries,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (default -1 = random)",
			Value:       -1,
			Destination: &s.seed,
		},
		&cli.BoolFlag{
			Name:        "legacy-counts",
			Usage:       "never increment occurrence counts past one",
			Destination: &s.legacyCounts,
		},
		&cli.StringFlag{
			Name:        "user-label",
			Usage:       "role label placed before the prompt",
			Value:       def.UserLabel,
			Destination: &s.userLabel,
		},
		&cli.StringFlag{
			Name:        "assistant-label",
			Usage:       "role label that cues the reply",
			Value:       def.AssistantLabel,
			Destination: &s.assistantLabel,
		},
	}
}

func modelFlags(s *genSettings) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vocab",
			Usage:       "path to a JSON vocabulary (default: byte tokenizer)",
			Destination: &s.vocabPath,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "hidden width of the built-in model",
			Value:       32,
			Destination: &s.hidden,
		},
		&cli.Int64Flag{
			Name:        "model-seed",
			Usage:       "seed for the built-in model's weights",
			Value:       1,
			Destination: &s.modelSeed,
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to config.yaml (default: user config dir)",
		Destination: &configFile,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// options resolves the settings into validated loop options. A negative
// seed picks one from the clock.
func (s *genSettings) options() (inference.Options, error) {
	seed := s.seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	policy := logits.CountIncrement
	if s.legacyCounts {
		policy = logits.CountLegacy
	}
	maxTokens := int(s.maxTokens)
	retries := int(s.maxStepRetries)

	opts := inference.ResolveOptions(inference.DefaultOptions(), inference.RequestOptions{
		Seed:             &seed,
		TopP:             &s.topP,
		Temperature:      &s.temp,
		PresencePenalty:  &s.presencePenalty,
		FrequencyPenalty: &s.frequencyPenalty,
		CountPolicy:      &policy,
		MaxTokens:        &maxTokens,
		MaxStepRetries:   &retries,
		UserLabel:        &s.userLabel,
		AssistantLabel:   &s.assistantLabel,
	})
	if err := opts.Validate(); err != nil {
		return inference.Options{}, err
	}
	return opts, nil
}

func (s *genSettings) loader() inference.Loader {
	return inference.Loader{
		VocabPath: s.vocabPath,
		Hidden:    int(s.hidden),
		ModelSeed: s.modelSeed,
	}
}
