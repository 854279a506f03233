package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/config"
	"github.com/klauern/feedsync/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display or initialize the configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: configShowAction,
			},
			{
				Name:  "path",
				Usage: "Print the configuration file location",
				Action: func(_ context.Context, cmd *cli.Command) error {
					fmt.Println(configPath(cmd))
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Service account email",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Service URL",
					},
				},
				Action: configInitAction,
			},
		},
		Action: configShowAction,
	}
}

func configPath(cmd *cli.Command) string {
	if path := cmd.String("config"); path != "" {
		return path
	}
	return config.FilePath()
}

// configShowAction prints the effective configuration. The password is
// never shown.
func configShowAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyColorMode(cmd, cfg)

	shown := *cfg
	if shown.Service.Password != "" {
		shown.Service.Password = "********"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n\n", ui.Dim("# file:"), ui.Dim(configPath(cmd)))
	fmt.Print(string(data))
	return nil
}

func configInitAction(_ context.Context, cmd *cli.Command) error {
	path := configPath(cmd)
	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if email := cmd.String("email"); email != "" {
		cfg.Service.Email = email
	}
	if url := cmd.String("url"); url != "" {
		cfg.Service.URL = url
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveToPath(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Println(ui.StatusSuccess("Wrote " + path))
	fmt.Println(ui.Dim("Set FEEDSYNC_SERVICE_PASSWORD to provide the account password."))
	return nil
}
