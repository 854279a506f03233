package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/sync"
	"github.com/klauern/feedsync/internal/ui"
	"github.com/klauern/feedsync/internal/ui/tui"
)

// PromptConfirmer asks about incoming additions on a line-oriented
// terminal. It implements sync.Confirmer.
type PromptConfirmer struct {
	reader *bufio.Reader
	out    io.Writer
}

var _ sync.Confirmer = (*PromptConfirmer)(nil)

// NewPromptConfirmer creates a confirmer reading answers from in.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{reader: bufio.NewReader(in), out: out}
}

// Confirm lists the candidates and asks once. Answering "s" lets the user
// pick items by number. End of input cancels.
func (p *PromptConfirmer) Confirm(ctx context.Context, lists []sync.ReadingListAddition, feeds []sync.FeedAddition) (sync.Confirmation, error) {
	cancelled := sync.Confirmation{Decision: sync.Cancelled}

	fmt.Fprintf(p.out, "\n%s\n", ui.Header("Incoming additions"))
	n := 0
	for _, l := range lists {
		n++
		fmt.Fprintf(p.out, "  %2d. %s\n", n, ui.ChangeLine(ui.MarkAdd, fmt.Sprintf("%s / list %s", l.Guide.Title, listTitle(l.List))))
	}
	for _, f := range feeds {
		n++
		fmt.Fprintf(p.out, "  %2d. %s\n", n, ui.ChangeLine(ui.MarkAdd, fmt.Sprintf("%s / %s", f.Guide.Title, describeFeed(f.Feed))))
	}

	for {
		if err := ctx.Err(); err != nil {
			return cancelled, err
		}
		fmt.Fprintf(p.out, "\nAdd %d item(s)? [y]es / [n]o / [s]elect: ", n)
		answer, ok := p.readLine()
		if !ok {
			return cancelled, nil
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return sync.Confirmation{Decision: sync.Accepted, ReadingLists: lists, Feeds: feeds}, nil
		case "n", "no", "q", "":
			return cancelled, nil
		case "s", "select":
			return p.selectItems(lists, feeds)
		default:
			fmt.Fprintln(p.out, ui.StatusWarning("Please answer y, n or s."))
		}
	}
}

// selectItems reads a list of item numbers such as "1 3-4".
func (p *PromptConfirmer) selectItems(lists []sync.ReadingListAddition, feeds []sync.FeedAddition) (sync.Confirmation, error) {
	total := len(lists) + len(feeds)
	for {
		fmt.Fprintf(p.out, "Items to add (e.g. 1 3-4, empty to cancel): ")
		line, ok := p.readLine()
		if !ok || line == "" {
			return sync.Confirmation{Decision: sync.Cancelled}, nil
		}
		picked, err := parseSelection(line, total)
		if err != nil {
			fmt.Fprintln(p.out, ui.StatusWarning(err.Error()))
			continue
		}

		conf := sync.Confirmation{Decision: sync.Accepted}
		for i := range total {
			if !picked[i+1] {
				continue
			}
			if i < len(lists) {
				conf.ReadingLists = append(conf.ReadingLists, lists[i])
			} else {
				conf.Feeds = append(conf.Feeds, feeds[i-len(lists)])
			}
		}
		return conf, nil
	}
}

func (p *PromptConfirmer) readLine() (string, bool) {
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

// parseSelection parses space or comma separated numbers and ranges in
// [1, total].
func parseSelection(s string, total int) (map[int]bool, error) {
	picked := make(map[int]bool)
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	for _, f := range fields {
		lo, hi, isRange := strings.Cut(f, "-")
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid item %q", f)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("invalid range %q", f)
			}
		}
		if from < 1 || to > total || from > to {
			return nil, fmt.Errorf("item %q is out of range 1-%d", f, total)
		}
		for i := from; i <= to; i++ {
			picked[i] = true
		}
	}
	return picked, nil
}

// chooseConfirmer picks how a sync run asks about additions.
func chooseConfirmer(assumeYes, confirm bool) sync.Confirmer {
	switch {
	case assumeYes || !confirm:
		return sync.AcceptAll{}
	case interactive():
		return tui.Confirmer{}
	default:
		return NewPromptConfirmer(os.Stdin, os.Stdout)
	}
}

func listTitle(rl *model.ReadingList) string {
	if rl.Title != "" {
		return rl.Title
	}
	return rl.URL
}

// describeFeed renders a feed with what identifies it.
func describeFeed(f model.Feed) string {
	switch v := f.(type) {
	case *model.DirectFeed:
		if title := model.DisplayTitle(v); title != v.XMLURL {
			return fmt.Sprintf("%s (%s)", title, v.XMLURL)
		}
		return v.XMLURL
	case *model.QueryFeed:
		return fmt.Sprintf("%s (query %s=%s)", v.Title, v.QueryType, v.Parameter)
	case *model.SearchFeed:
		return fmt.Sprintf("%s (search %q)", v.Title, v.Query)
	default:
		return model.DisplayTitle(f)
	}
}

// ask poses a yes/no question. Anything but yes, including end of input,
// is no.
func (p *PromptConfirmer) ask(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	answer, ok := p.readLine()
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
