package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/klauern/feedsync/internal/export"
	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/match"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/suggest"
	"github.com/klauern/feedsync/internal/tombstone"
	"github.com/klauern/feedsync/internal/ui"
)

func guidesCommand() *cli.Command {
	return &cli.Command{
		Name:  "guides",
		Usage: "List or edit the local guides",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "guide",
				Aliases: []string{"g"},
				Usage:   "Show only the guide with this title",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a guide, or a feed or reading list from it",
				UsageText: "feedsync guides remove <guide> [--feed <url|title>] [--list <url>]",
				Description: `Removals are remembered so that the next merge from the service does
   not bring the removed items back.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "feed",
						Usage: "Remove the feed with this URL, title or search query",
					},
					&cli.StringFlag{
						Name:  "list",
						Usage: "Remove the reading list with this URL",
					},
				},
				Action: guidesRemoveAction,
			},
		},
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

			opts := export.DefaultOptions()
			opts.Guide = cmd.String("guide")
			opts.Width = terminalWidth(os.Stdout)
			if err := checkGuide(ws.local, opts.Guide); err != nil {
				return err
			}
			return export.New(opts).Export(ws.local, os.Stdout)
		},
	}
}

func guidesRemoveAction(ctx context.Context, cmd *cli.Command) (err error) {
	if cmd.Args().Len() != 1 {
		return errors.New("guides remove requires exactly 1 argument: <guide>")
	}
	title := cmd.Args().First()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, &err)

	var removed string
	err = ws.local.Update(func(h *model.Hierarchy) error {
		g := h.FindGuide(title)
		if g == nil {
			return guideNotFound(h, title)
		}

		var rerr error
		switch {
		case cmd.String("feed") != "":
			removed, rerr = removeFeed(ctx, ws.tombstones, g, cmd.String("feed"))
		case cmd.String("list") != "":
			removed, rerr = removeList(ctx, ws.tombstones, g, cmd.String("list"))
		default:
			removed, rerr = removeGuide(ctx, ws.tombstones, h, g)
		}
		if rerr != nil {
			return rerr
		}
		return ws.file.Save(h)
	})
	if err != nil {
		return err
	}

	logging.Info("removed from guides", logging.Guide(title))
	fmt.Println(ui.StatusSuccess("Removed " + removed))
	return nil
}

// removeFeed unlinks the feed matching ref from g and remembers the
// deletion. A feed left in no guide is detached from its reading lists.
func removeFeed(ctx context.Context, repo tombstone.Repository, g *model.Guide, ref string) (string, error) {
	f := findFeed(g, ref)
	if f == nil {
		return "", fmt.Errorf("feed %q not found in guide %q", ref, g.Title)
	}
	if err := repo.Record(ctx, g.Title, match.Key(f)); err != nil {
		return "", fmt.Errorf("failed to record deletion: %w", err)
	}
	g.Unlink(f)
	if len(f.Base().Guides()) == 0 {
		model.Detach(f)
	}
	return fmt.Sprintf("%s from %s", model.DisplayTitle(f), g.Title), nil
}

func removeList(ctx context.Context, repo tombstone.Repository, g *model.Guide, url string) (string, error) {
	rl := g.FindReadingList(url)
	if rl == nil {
		return "", fmt.Errorf("reading list %q not found in guide %q", url, g.Title)
	}
	if err := repo.Record(ctx, g.Title, match.ReadingListKey(rl)); err != nil {
		return "", fmt.Errorf("failed to record deletion: %w", err)
	}
	g.RemoveReadingList(rl)
	return fmt.Sprintf("reading list %s from %s", listTitle(rl), g.Title), nil
}

// removeGuide drops g and remembers every feed and reading list it held.
func removeGuide(ctx context.Context, repo tombstone.Repository, h *model.Hierarchy, g *model.Guide) (string, error) {
	for _, f := range g.AllFeeds() {
		if err := repo.Record(ctx, g.Title, match.Key(f)); err != nil {
			return "", fmt.Errorf("failed to record deletion: %w", err)
		}
	}
	for _, rl := range g.ReadingLists() {
		if err := repo.Record(ctx, g.Title, match.ReadingListKey(rl)); err != nil {
			return "", fmt.Errorf("failed to record deletion: %w", err)
		}
	}
	feeds := g.AllFeeds()
	h.RemoveGuide(g)
	for _, f := range feeds {
		if len(f.Base().Guides()) == 0 {
			model.Detach(f)
		}
	}
	return "guide " + g.Title, nil
}

// checkGuide fails when a guide filter names no local guide.
func checkGuide(local *model.Hierarchy, title string) error {
	if title == "" {
		return nil
	}
	var err error
	local.View(func(h *model.Hierarchy) {
		if h.FindGuide(title) == nil {
			err = guideNotFound(h, title)
		}
	})
	return err
}

func guideNotFound(h *model.Hierarchy, title string) error {
	titles := make([]string, 0, len(h.Guides()))
	for _, g := range h.Guides() {
		titles = append(titles, g.Title)
	}
	return fmt.Errorf("guide %q not found%s", title, suggest.DidYouMean(title, titles))
}

// findFeed matches ref against feed URLs, display titles and search
// queries, in that order.
func findFeed(g *model.Guide, ref string) model.Feed {
	feeds := g.AllFeeds()
	for _, f := range feeds {
		if d, ok := f.(*model.DirectFeed); ok && strings.EqualFold(strings.TrimSpace(d.XMLURL), strings.TrimSpace(ref)) {
			return f
		}
	}
	for _, f := range feeds {
		if model.DisplayTitle(f) == ref {
			return f
		}
	}
	for _, f := range feeds {
		if s, ok := f.(*model.SearchFeed); ok && s.Query == ref {
			return f
		}
	}
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the local guides",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, yaml (default from output.format)",
			},
			&cli.StringFlag{
				Name:    "guide",
				Aliases: []string{"g"},
				Usage:   "Export only the guide with this title",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "keys",
				Usage: "Include read and pinned article keys",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Do not indent JSON output",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			name := cmd.String("format")
			if name == "" {
				name = cfg.Output.Format
			}
			format, err := export.ParseFormat(name)
			if err != nil {
				return err
			}

			ws, err := openWorkspace(cfg)
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			opts := export.DefaultOptions()
			opts.Format = format
			opts.Guide = cmd.String("guide")
			opts.IncludeKeys = cmd.Bool("keys")
			if err := checkGuide(ws.local, opts.Guide); err != nil {
				return err
			}
			opts.Pretty = !cmd.Bool("compact")

			var w io.Writer = os.Stdout
			if path := cmd.String("output"); path != "" {
				// #nosec G304 - path is provided by the user
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = cerr
					}
				}()
				w = f
			} else if format == export.FormatText {
				opts.Width = terminalWidth(os.Stdout)
			}

			return export.New(opts).Export(ws.local, w)
		},
	}
}

// terminalWidth returns the width of f when it is a terminal, else 0.
func terminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
