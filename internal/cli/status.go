package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/state"
	"github.com/klauern/feedsync/internal/ui"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the local guides and the last synchronization results",
		Action: func(_ context.Context, cmd *cli.Command) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyColorMode(cmd, cfg)

			ws, err := openWorkspace(cfg)
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			var guides, feeds, lists int
			ws.local.View(func(h *model.Hierarchy) {
				guides = len(h.Guides())
				feeds = len(h.Feeds())
				lists = h.ReadingListCount()
			})
			snap := ws.state.Snapshot()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", ui.Bold("Service:"), cfg.Service.URL)
			account := cfg.Service.Email
			if account == "" {
				account = ui.Warning("not configured")
			}
			fmt.Fprintf(w, "%s\t%s\n", ui.Bold("Account:"), account)
			if snap.UserID != "" {
				fmt.Fprintf(w, "%s\t%s\n", ui.Bold("User ID:"), snap.UserID)
			}
			fmt.Fprintf(w, "%s\t%d guide(s), %d feed(s), %d reading list(s)\n", ui.Bold("Local:"), guides, feeds, lists)
			fmt.Fprintf(w, "%s\t%s\n", ui.Bold("Last sync in:"), describeSync(snap.SyncIn.Status, snap.SyncIn.LastTime))
			out := describeSync(snap.SyncOut.Status, snap.SyncOut.LastTime)
			if snap.SyncOut.Status != state.StatusNever {
				out += fmt.Sprintf(" (%d feeds)", snap.SyncOut.FeedCount)
			}
			fmt.Fprintf(w, "%s\t%s\n", ui.Bold("Last sync out:"), out)
			fmt.Fprintf(w, "%s\t%d categor(ies)\n", ui.Bold("Preferences:"), len(snap.Preferences))
			return w.Flush()
		},
	}
}

func describeSync(status state.Status, at int64) string {
	when := ""
	if at >= 0 {
		when = " at " + time.UnixMilli(at).Local().Format("2006-01-02 15:04:05")
	}
	switch status {
	case state.StatusSuccess:
		return ui.Success("success") + when
	case state.StatusFailure:
		return ui.Error("failure") + when
	default:
		return ui.Dim("never")
	}
}
