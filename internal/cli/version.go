package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/model"
)

// buildInfo is what `feedsync version` reports.
type buildInfo struct {
	Version         string `json:"version" yaml:"version"`
	Commit          string `json:"commit" yaml:"commit"`
	Built           string `json:"built" yaml:"built"`
	Go              string `json:"go" yaml:"go"`
	Platform        string `json:"platform" yaml:"platform"`
	DocumentVersion int    `json:"document_version" yaml:"document_version"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:         Version,
		Commit:          Commit,
		Built:           BuildDate,
		Go:              runtime.Version(),
		Platform:        runtime.GOOS + "/" + runtime.GOARCH,
		DocumentVersion: model.DocumentVersion,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Display version and build information",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, yaml",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			info := currentBuild()
			switch format := cmd.String("format"); format {
			case "text":
				fmt.Printf("feedsync version %s\n", info.Version)
				fmt.Printf("  commit: %s\n", info.Commit)
				fmt.Printf("  built: %s\n", info.Built)
				fmt.Printf("  go: %s (%s)\n", info.Go, info.Platform)
				fmt.Printf("  guides format: v%d\n", info.DocumentVersion)
				return nil
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			case "yaml":
				return yaml.NewEncoder(os.Stdout).Encode(info)
			default:
				return fmt.Errorf("invalid format: %s (use text, json, or yaml)", format)
			}
		},
	}
}
