package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamcue/relay-service/config"
	"github.com/urfave/cli/v2"
)

const (
	ServiceName      = "relay-service"
	ServiceNamespace = "streamcue"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Relays live-stream chat and media events to a voice assistant",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the relay (HTTP, websocket and gRPC health)",
		ArgsUsage: "[-- --queue.pacing=2s ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config_file",
				Usage:   "Path to the configuration file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG_FILE"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"), c.Args().Slice())
			if err != nil {
				return err
			}
			if cfg.Service.Version == "" || cfg.Service.Version == "0.0.0" {
				cfg.Service.Version = version
			}

			app := NewApp(cfg)

			startCtx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			slog.Info("SERVICE_STARTED",
				"commit", commit,
				"commit_date", commitDate,
				"branch", branch,
				"build", buildTimestamp,
			)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelStop()
			return app.Stop(stopCtx)
		},
	}
}
