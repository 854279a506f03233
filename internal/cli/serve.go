package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/service/server"
	"github.com/klauern/feedsync/internal/ui"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the reference sync service",
		Description: `Run an in-memory sync service speaking the protocol the sync command
   uses. Accounts are created on first use and forgotten on exit.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on (default from server.listen)",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Write request logs as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			addr := cmd.String("listen")
			if addr == "" {
				addr = cfg.Server.Listen
			}

			logger := logging.Default()
			if cmd.Bool("json-logs") {
				opts := logging.DefaultOptions()
				opts.Level = logging.LevelInfo
				opts.JSON = true
				logger = logging.New(opts)
			}

			srv := server.New(
				server.WithLogger(logger),
				server.WithRateLimit(cfg.Server.Rate, cfg.Server.Burst),
			)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println(ui.Info("Sync service listening on " + addr))
			if err := srv.Serve(ctx, addr); err != nil {
				return err
			}
			fmt.Println(ui.StatusSuccess("Sync service stopped"))
			return nil
		},
	}
}
