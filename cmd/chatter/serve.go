package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/chatter/internal/api"
	"github.com/samcharles93/chatter/internal/inference"
	"github.com/samcharles93/chatter/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		s           genSettings
		addr        string
		readTimeout time.Duration
		queueSize   int64
		maxRuns     int64
	)

	flags := append(generationFlags(&s), modelFlags(&s)...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.Int64Flag{
			Name:        "queue-size",
			Usage:       "prompts that may wait for the generator",
			Value:       64,
			Destination: &queueSize,
		},
		&cli.Int64Flag{
			Name:        "max-runs",
			Usage:       "run records kept for GET /v1/runs/:id",
			Value:       api.DefaultMaxRuns,
			Destination: &maxRuns,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the prompt API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			fileConfig.applyGeneration(c, &s)
			fileConfig.applyServe(c, &addr, &queueSize, &maxRuns)

			opts, err := s.options()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loop, res, err := s.loader().LoadLoop(opts, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load: %v", err), 1)
			}
			ctrl, err := inference.NewController(loop, inference.ControllerConfig{
				QueueSize: int(queueSize),
				Logger:    log,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			ctrlDone := make(chan error, 1)
			go func() { ctrlDone <- ctrl.Run(ctx) }()

			server := api.NewServer(api.NewRunStoreWithLimit(int(maxRuns)), ctrl)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "vocab", res.VocabSize, "queue", queueSize)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			err = sc.Start(ctx, e)

			cancel()
			if cerr := <-ctrlDone; cerr != nil && !errors.Is(cerr, context.Canceled) {
				log.Warn("controller stopped", "error", cerr)
			}
			return err
		},
	}
}
