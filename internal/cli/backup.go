package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/backup"
	"github.com/klauern/feedsync/internal/config"
	"github.com/klauern/feedsync/internal/suggest"
	"github.com/klauern/feedsync/internal/ui"
	"github.com/klauern/feedsync/internal/ui/tui"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage backups of the guides file and sync state",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List backups, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Only list backups of this kind (guides, state)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Show at most this many backups (0 = all)",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "table",
						Usage: "Output format: table, json, yaml",
					},
				},
				Action: backupListAction,
			},
			{
				Name:      "restore",
				Usage:     "Restore a backup over the file it was taken from",
				UsageText: "feedsync backup restore <id>",
				Action:    backupRestoreAction,
			},
			{
				Name:      "verify",
				Usage:     "Check a backup against its recorded hash",
				UsageText: "feedsync backup verify <id>",
				Action:    backupVerifyAction,
			},
			{
				Name:  "cleanup",
				Usage: "Remove backups outside the retention limits",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-backups",
						Value: -1,
						Usage: "Keep at most this many backups per file (default from backup.max_backups)",
					},
					&cli.DurationFlag{
						Name:  "max-age",
						Usage: "Remove backups older than this (default from backup.max_age)",
					},
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"d"},
						Usage:   "Show what would be removed",
					},
				},
				Action: backupCleanupAction,
			},
			{
				Name:   "stats",
				Usage:  "Summarize stored backups",
				Action: backupStatsAction,
			},
			{
				Name:   "browse",
				Usage:  "Browse backups interactively to restore, verify or delete them",
				Action: backupBrowseAction,
			},
		},
		Action: backupListAction,
	}
}

func backupManager(cmd *cli.Command) (*backup.Manager, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyColorMode(cmd, cfg)
	return backup.NewManager(cfg.Backup.Location), cfg, nil
}

func backupListAction(_ context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	switch format {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("invalid format: %s (use table, json, or yaml)", format)
	}

	m, _, err := backupManager(cmd)
	if err != nil {
		return err
	}
	backups, err := m.List(backup.Kind(cmd.String("kind")))
	if err != nil {
		return err
	}
	if limit := int(cmd.Int("limit")); limit > 0 && len(backups) > limit {
		backups = backups[:limit]
	}
	if backups == nil {
		backups = []backup.Metadata{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(backups)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(backups)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ui.Header("ID"), ui.Header("KIND"), ui.Header("CREATED"), ui.Header("SIZE"), ui.Header("DESCRIPTION"))
	for _, b := range backups {
		content := b.Description
		if b.Guides > 0 || b.Feeds > 0 {
			content = fmt.Sprintf("%d guide(s), %d feed(s)", b.Guides, b.Feeds)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Kind, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), formatSize(b.Size), content)
	}
	return w.Flush()
}

func backupRestoreAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() > 1 {
		return errors.New("backup restore takes at most 1 argument: <id>")
	}
	if cmd.Args().Len() == 0 {
		if !interactive() {
			return errors.New("backup restore requires exactly 1 argument: <id>")
		}
		return backupBrowseAction(ctx, cmd)
	}
	m, _, err := backupManager(cmd)
	if err != nil {
		return err
	}
	return restoreBackup(m, cmd.Args().First())
}

// restoreBackup backs up the current file and then restores id over it.
func restoreBackup(m *backup.Manager, id string) error {
	meta, err := m.Get(id)
	if err != nil {
		return withBackupHint(m, id, err)
	}
	if _, statErr := os.Stat(meta.SourcePath); statErr == nil {
		if _, err := m.Create(meta.SourcePath, backup.Options{Kind: meta.Kind, Description: "before restore of " + id}); err != nil {
			return fmt.Errorf("failed to back up current file: %w", err)
		}
	}
	meta, err = m.Restore(id, "")
	if err != nil {
		return err
	}
	fmt.Println(ui.StatusSuccess(fmt.Sprintf("Restored %s from backup %s", meta.SourcePath, meta.ID)))
	return nil
}

func backupBrowseAction(ctx context.Context, cmd *cli.Command) error {
	if !interactive() {
		return errors.New("backup browse needs an interactive terminal; use backup list instead")
	}
	m, _, err := backupManager(cmd)
	if err != nil {
		return err
	}
	backups, err := m.List("")
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	choice, err := tui.BrowseBackups(ctx, backups)
	if err != nil {
		return err
	}
	id := choice.Backup.ID
	switch choice.Action {
	case tui.BackupRestore:
		return restoreBackup(m, id)
	case tui.BackupVerify:
		if err := m.Verify(id); err != nil {
			return err
		}
		fmt.Println(ui.StatusSuccess("Backup " + id + " is intact"))
	case tui.BackupDelete:
		if err := m.Delete(id); err != nil {
			return err
		}
		fmt.Println(ui.StatusSuccess("Deleted backup " + id))
	}
	return nil
}

func backupVerifyAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("backup verify requires exactly 1 argument: <id>")
	}
	m, _, err := backupManager(cmd)
	if err != nil {
		return err
	}
	id := cmd.Args().First()
	if err := m.Verify(id); err != nil {
		return withBackupHint(m, id, err)
	}
	fmt.Println(ui.StatusSuccess("Backup " + id + " is intact"))
	return nil
}

func backupCleanupAction(_ context.Context, cmd *cli.Command) error {
	m, cfg, err := backupManager(cmd)
	if err != nil {
		return err
	}

	opts := backup.DefaultCleanupOptions()
	opts.MaxBackups = cfg.Backup.MaxBackups
	opts.MaxAge = cfg.Backup.MaxAge
	if n := int(cmd.Int("max-backups")); n >= 0 {
		opts.MaxBackups = n
	}
	if cmd.IsSet("max-age") {
		opts.MaxAge = cmd.Duration("max-age")
	}
	opts.DryRun = cmd.Bool("dry-run")

	ids, err := m.Cleanup(opts)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No backups to remove")
		return nil
	}
	verb := "Removed"
	if opts.DryRun {
		verb = "Would remove"
	}
	for _, id := range ids {
		fmt.Println(ui.ChangeLine(ui.MarkRemove, id))
	}
	fmt.Printf("%s %d backup(s)\n", verb, len(ids))
	return nil
}

func backupStatsAction(_ context.Context, cmd *cli.Command) error {
	m, _, err := backupManager(cmd)
	if err != nil {
		return err
	}
	stats, err := m.Stats()
	if err != nil {
		return err
	}
	if stats.TotalBackups == 0 {
		fmt.Println("No backups found")
		return nil
	}
	fmt.Printf("%s %d (%s)\n", ui.Bold("Backups:"), stats.TotalBackups, formatSize(stats.TotalSize))
	for _, k := range []backup.Kind{backup.KindHierarchy, backup.KindState} {
		fmt.Printf("  %s: %d\n", k, stats.ByKind[k])
	}
	fmt.Printf("%s %s\n", ui.Bold("Oldest:"), stats.OldestBackup.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("%s %s\n", ui.Bold("Newest:"), stats.NewestBackup.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// withBackupHint suggests a known id when err is an unknown backup id.
func withBackupHint(m *backup.Manager, id string, err error) error {
	if !errors.Is(err, backup.ErrNotFound) {
		return err
	}
	backups, lerr := m.List("")
	if lerr != nil {
		return err
	}
	ids := make([]string, 0, len(backups))
	for _, b := range backups {
		ids = append(ids, b.ID)
	}
	if hint := suggest.DidYouMean(id, ids); hint != "" {
		return fmt.Errorf("%w%s", err, hint)
	}
	return err
}

// formatSize renders a byte count with a binary unit.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
