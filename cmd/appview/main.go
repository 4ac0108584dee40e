package main

import (
	"context"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"

	"memorylane.app/core/appview/config"
	"memorylane.app/core/appview/state"
	"memorylane.app/core/log"
)

func main() {
	logger := log.New("appview")

	cmd := &cli.Command{
		Name:  "appview",
		Usage: "memory lane time-capsule service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API and the unlock scheduler",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.LoadConfig(ctx)
					if err != nil {
						return err
					}

					s, err := state.Make(ctx, cfg)
					if err != nil {
						return err
					}
					defer func() {
						if err := s.Close(); err != nil {
							logger.Error("failed to close state", "err", err)
						}
					}()

					go s.Scheduler.Run(ctx)

					logger.Info("starting server", "address", cfg.Core.ListenAddr)
					return http.ListenAndServe(cfg.Core.ListenAddr, s.Router())
				},
			},
			{
				Name:  "sweep",
				Usage: "run a single unlock sweep and exit",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.LoadConfig(ctx)
					if err != nil {
						return err
					}

					s, err := state.Make(ctx, cfg)
					if err != nil {
						return err
					}
					defer s.Close()

					return s.Scheduler.Sweep(ctx)
				},
			},
		},
	}

	ctx := log.IntoContext(context.Background(), logger)
	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}
