package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Saymandev/advanced-poss-gateway/internal/broadcast"
	"github.com/Saymandev/advanced-poss-gateway/internal/server"
	"github.com/Saymandev/advanced-poss-gateway/pkg/config"
	"github.com/Saymandev/advanced-poss-gateway/pkg/logging"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "gateway",
		Usage: "Scoped real-time event distribution gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file name (without extension)",
				Value: "config",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Action: serve,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	logger := logging.New(logging.ParseLevel(cmd.String("log-level")))
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, cmd.String("config"))
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	broadcaster := broadcast.New(logger)
	app := server.NewApp(logger, runCtx, cfg, broadcaster)
	if err := app.Run(); err != nil {
		logger.Error("application run failed", slog.Any("error", err))
		return err
	}
	logger.Info("application shut down successfully")
	return nil
}
