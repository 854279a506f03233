package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/feedsync/internal/state"
	"github.com/klauern/feedsync/internal/ui"
)

func prefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change the preferences synchronized with the service",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List preferences by category",
				Action: prefsListAction,
			},
			{
				Name:      "get",
				Usage:     "Print one preference value",
				ArgsUsage: "<category>.<key>",
				Action:    prefsGetAction,
			},
			{
				Name:      "set",
				Usage:     "Change a preference; the next sync out pushes it",
				ArgsUsage: "<category>.<key> <value>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Value:   "string",
						Usage:   "Value type: string, bool, int",
					},
				},
				Action: prefsSetAction,
			},
		},
		Action: prefsListAction,
	}
}

func openState(cmd *cli.Command) (*state.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyColorMode(cmd, cfg)
	st, err := state.Open(cfg.Storage.State)
	if err != nil {
		return nil, fmt.Errorf("failed to open sync state: %w", err)
	}
	return st, nil
}

func prefsListAction(_ context.Context, cmd *cli.Command) error {
	st, err := openState(cmd)
	if err != nil {
		return err
	}
	snap := st.Snapshot()
	if len(snap.Preferences) == 0 {
		fmt.Println("No preferences stored")
		return nil
	}

	names := make([]string, 0, len(snap.Preferences))
	for name := range snap.Preferences {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		c := snap.Preferences[name]
		changed := "never"
		if c.ChangeTime >= 0 {
			changed = time.UnixMilli(c.ChangeTime).Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\n", ui.Header(name), ui.Dim("changed "+changed))
		keys := make([]string, 0, len(c.Values))
		for k := range c.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s.%s\t%s\n", name, k, c.Values[k])
		}
	}
	return w.Flush()
}

func prefsGetAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("usage: feedsync prefs get <category>.<key>")
	}
	category, key, err := state.SplitKey(cmd.Args().First())
	if err != nil {
		return err
	}
	st, err := openState(cmd)
	if err != nil {
		return err
	}
	v, ok := st.Get(category, key)
	if !ok {
		return fmt.Errorf("preference %s.%s is not set", category, key)
	}
	fmt.Println(v)
	return nil
}

func prefsSetAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New("usage: feedsync prefs set <category>.<key> <value>")
	}
	category, key, err := state.SplitKey(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	value, err := preferenceValue(cmd.String("type"), cmd.Args().Get(1))
	if err != nil {
		return err
	}

	st, err := openState(cmd)
	if err != nil {
		return err
	}
	st.Set(category, key, value, time.Now().UnixMilli())
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Println(ui.StatusSuccess(fmt.Sprintf("Set %s.%s = %s", category, key, value)))
	return nil
}

// preferenceValue normalizes raw into the wire form of the given type.
func preferenceValue(kind, raw string) (string, error) {
	switch kind {
	case "string":
		return raw, nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", fmt.Errorf("invalid bool value %q", raw)
		}
		return state.FormatBool(b), nil
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid int value %q", raw)
		}
		return state.FormatInt(n), nil
	default:
		return "", fmt.Errorf("invalid type: %s (use string, bool, or int)", kind)
	}
}
