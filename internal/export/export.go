// Package export writes the local guide hierarchy in user-facing formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
)

// Format represents the output format of an export.
type Format string

const (
	// FormatJSON exports the guides document as JSON.
	FormatJSON Format = "json"
	// FormatYAML exports the guides document as YAML.
	FormatYAML Format = "yaml"
	// FormatText prints an indented tree of guides and feeds.
	FormatText Format = "text"
)

// IsValid returns true if the format is recognized.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatText:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// AllFormats returns all supported export formats.
func AllFormats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatText}
}

// ParseFormat parses a string into a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported format %q (valid: json, yaml, text)", s)
	}
	return format, nil
}

// Options configures export behavior.
type Options struct {
	Format Format
	// Pretty enables indentation for JSON.
	Pretty bool
	// Guide limits the export to the guide with this exact title.
	Guide string
	// IncludeKeys keeps read and pinned article keys in JSON/YAML output.
	IncludeKeys bool
	// Width truncates text tree lines to this many terminal cells (0 = off).
	Width int
}

// DefaultOptions returns the default export options.
func DefaultOptions() Options {
	return Options{
		Format: FormatText,
		Pretty: true,
	}
}

// Exporter writes hierarchies in the configured format.
type Exporter struct {
	opts Options
}

// New creates a new Exporter with the given options.
func New(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export writes h to w. It takes the hierarchy lock while reading.
func (e *Exporter) Export(h *model.Hierarchy, w io.Writer) error {
	defer logging.Timer(logging.Default(), "export")()

	var doc *model.Document
	h.View(func(h *model.Hierarchy) {
		doc = model.Export(h)
	})
	doc = e.filter(doc)

	logging.Debug("starting export",
		slog.String("format", string(e.opts.Format)),
		logging.Count(len(doc.Guides)),
		logging.Operation("export"),
	)

	var err error
	switch e.opts.Format {
	case FormatJSON:
		err = e.exportJSON(doc, w)
	case FormatYAML:
		err = e.exportYAML(doc, w)
	case FormatText:
		err = e.exportText(doc, w)
	default:
		err = fmt.Errorf("unsupported format: %s", e.opts.Format)
	}
	if err != nil {
		logging.Error("export failed", slog.String("format", string(e.opts.Format)), logging.Err(err))
		return err
	}
	return nil
}

// filter drops guides other than opts.Guide, the feeds only they reference,
// and the article keys unless requested.
func (e *Exporter) filter(doc *model.Document) *model.Document {
	if e.opts.Guide != "" {
		var kept []model.GuideRecord
		used := make(map[string]bool)
		for _, g := range doc.Guides {
			if g.Title != e.opts.Guide {
				continue
			}
			kept = append(kept, g)
			for _, l := range g.Links {
				used[l.FeedID] = true
			}
			for _, rl := range g.ReadingLists {
				for _, id := range rl.FeedIDs {
					used[id] = true
				}
			}
		}
		var feeds []model.FeedRecord
		for _, f := range doc.Feeds {
			if used[f.ID] {
				feeds = append(feeds, f)
			}
		}
		doc.Guides, doc.Feeds = kept, feeds
	}
	if !e.opts.IncludeKeys {
		for i := range doc.Feeds {
			doc.Feeds[i].ReadKeys = nil
			doc.Feeds[i].PinnedKeys = nil
		}
	}
	return doc
}

func (e *Exporter) exportJSON(doc *model.Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	if e.opts.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (e *Exporter) exportYAML(doc *model.Document, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func (e *Exporter) exportText(doc *model.Document, w io.Writer) error {
	feeds := make(map[string]model.FeedRecord, len(doc.Feeds))
	for _, f := range doc.Feeds {
		feeds[f.ID] = f
	}

	var sb strings.Builder
	for _, g := range doc.Guides {
		e.line(&sb, g.Title)
		n := len(g.Links) + len(g.ReadingLists)
		i := 0
		branch := func() string {
			i++
			if i == n {
				return "  └─ "
			}
			return "  ├─ "
		}
		for _, l := range g.Links {
			e.line(&sb, branch()+describe(feeds[l.FeedID]))
		}
		for _, rl := range g.ReadingLists {
			title := rl.Title
			if title == "" {
				title = rl.URL
			}
			e.line(&sb, fmt.Sprintf("%sreading list: %s <%s> (%s)", branch(), title, rl.URL, plural(len(rl.FeedIDs), "feed")))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (e *Exporter) line(sb *strings.Builder, s string) {
	if e.opts.Width > 0 {
		s = runewidth.Truncate(s, e.opts.Width, "…")
	}
	sb.WriteString(s)
	sb.WriteByte('\n')
}

func describe(f model.FeedRecord) string {
	switch f.Kind {
	case "direct":
		title := f.UserTitle
		if title == "" {
			title = f.Title
		}
		if title == "" || title == f.XMLURL {
			return "<" + f.XMLURL + ">"
		}
		return fmt.Sprintf("%s <%s>", title, f.XMLURL)
	case "query":
		if f.Parameter != "" {
			return fmt.Sprintf("[%s: %s] %s", f.QueryType, f.Parameter, f.Title)
		}
		return fmt.Sprintf("[%s] %s", f.QueryType, f.Title)
	case "search":
		return fmt.Sprintf("[search: %s] %s", f.Query, f.Title)
	default:
		return f.Title
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
