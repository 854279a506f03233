package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/klauern/feedsync/internal/ui"
)

func tombstonesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tombstones",
		Usage: "Manage the record of feeds deleted locally",
		Description: `Feeds and reading lists removed locally are remembered so that a
   merge does not bring them back from the service.`,
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List deletion records",
				Action:  tombstonesListAction,
			},
			{
				Name:  "purge",
				Usage: "Forget every deletion record",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Do not ask for confirmation",
					},
				},
				Action: tombstonesPurgeAction,
			},
		},
		Action: tombstonesListAction,
	}
}

func tombstonesListAction(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, &err)

	entries, err := ws.tombstones.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No deletion records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", ui.Header("GUIDE"), ui.Header("KEY"), ui.Header("DELETED"))
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.GuideTitle, e.Key, e.DeletedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func tombstonesPurgeAction(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, &err)

	if !cmd.Bool("force") {
		p := NewPromptConfirmer(os.Stdin, os.Stdout)
		if !p.ask("Forget every deletion record?") {
			fmt.Println(ui.StatusCancelled("Purge cancelled"))
			return nil
		}
	}
	if err := ws.tombstones.Purge(ctx); err != nil {
		return err
	}
	fmt.Println(ui.StatusSuccess("Deletion records purged"))
	return nil
}
