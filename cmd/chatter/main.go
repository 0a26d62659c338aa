package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/chatter/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:  "chatter",
		Usage: "Prompt-driven text generation with nucleus sampling",
		Flags: append(loggingFlags(), configFlag()),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath(configFile))
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fileConfig = cfg
			fileConfig.applyLogging(cmd)

			level := logger.ParseLevel(logLevel)
			if debug {
				level = slog.LevelDebug
			}
			return logger.WithContext(ctx, logger.ForFormat(logFormat, os.Stderr, level)), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			runCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
