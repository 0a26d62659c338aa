package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/chatter/internal/inference"
	"github.com/samcharles93/chatter/internal/logger"
)

func runCmd() *cli.Command {
	var (
		s         genSettings
		prompt    string
		showStats bool
	)

	flags := append(generationFlags(&s), modelFlags(&s)...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt to answer once (default: interactive)",
			Destination: &prompt,
		},
		&cli.BoolFlag{
			Name:        "stats",
			Usage:       "print generation stats after each reply",
			Value:       true,
			Destination: &showStats,
		},
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate replies from the command line",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			fileConfig.applyGeneration(c, &s)

			opts, err := s.options()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loop, res, err := s.loader().LoadLoop(opts, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load: %v", err), 1)
			}
			log.Debug("model ready", "vocab", res.VocabSize, "seed", opts.Sampler.Seed)

			r := replRunner{loop: loop, out: os.Stdout, errOut: os.Stderr, showStats: showStats}
			if prompt != "" {
				return r.once(ctx, prompt)
			}
			if isTerminal(os.Stdin) {
				r.promptMark = "> "
				_, _ = fmt.Fprintln(os.Stderr, "Interactive mode. Type /exit to quit.")
			}
			return r.interactive(ctx, os.Stdin)
		},
	}
}

// replRunner streams replies from a Loop to a terminal or pipe.
type replRunner struct {
	loop       *inference.Loop
	out        io.Writer
	errOut     io.Writer
	showStats  bool
	promptMark string
}

func (r replRunner) once(ctx context.Context, prompt string) error {
	if err := r.generate(ctx, prompt); err != nil {
		return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
	}
	return nil
}

// interactive answers one prompt per input line until EOF or /exit. A failed
// run is reported and the session carries on.
func (r replRunner) interactive(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, _ = fmt.Fprint(r.out, r.promptMark)
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "/exit" {
			return nil
		}
		if input == "" {
			continue
		}
		if err := r.generate(ctx, input); err != nil {
			_, _ = fmt.Fprintln(r.errOut, "error: generation:", err)
		}
	}
}

func (r replRunner) generate(ctx context.Context, prompt string) error {
	res, err := r.loop.RunStream(ctx, prompt, func(piece string) {
		_, _ = fmt.Fprint(r.out, piece)
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.out)
	if r.showStats {
		st := res.Stats
		_, _ = fmt.Fprintf(r.errOut, "Stats: %.2f TPS (%d tokens in %s, stop: %s)\n", st.TPS, st.TokensGenerated, st.Duration, res.StopReason)
	}
	return nil
}
