// Package progress reports the steps of a sync run on the terminal or in
// the log.
package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/sync"
	"github.com/klauern/feedsync/internal/ui"
)

// Bar wraps a progressbar and falls back to debug logging when the output is
// not an interactive terminal.
type Bar struct {
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
}

// Options configures the progress bar behavior.
type Options struct {
	// Max is the number of steps. Negative values draw a spinner.
	Max int64
	// Description is the prefix text shown before the progress bar.
	Description string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
	// Force shows the bar even when Writer is not a terminal.
	Force bool
}

// New creates a new progress bar with the given options.
// The bar is only shown if:
//   - Colors are enabled (respects NO_COLOR and --no-color)
//   - Output is a terminal
//   - Not in debug mode (to avoid interfering with logs)
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	b := &Bar{
		enabled: opts.Force || shouldShowProgress(opts.Writer),
		desc:    opts.Description,
	}

	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s started", opts.Description), logging.Count(int(opts.Max)))
		return b
	}

	b.bar = progressbar.NewOptions64(
		opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(opts.Writer, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
	return b
}

// Add increments the progress bar by n steps.
func (b *Bar) Add(n int) error {
	if !b.enabled {
		return nil
	}
	return b.bar.Add(n)
}

// Describe updates the progress bar description.
func (b *Bar) Describe(desc string) {
	b.desc = desc
	if !b.enabled {
		return
	}
	b.bar.Describe(desc)
}

// Finish completes the progress bar and logs completion.
func (b *Bar) Finish() error {
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s completed", b.desc))
		return nil
	}
	return b.bar.Finish()
}

// Clear removes the progress bar from the terminal.
func (b *Bar) Clear() error {
	if !b.enabled {
		return nil
	}
	return b.bar.Clear()
}

// Enabled reports whether the bar draws anything.
func (b *Bar) Enabled() bool { return b.enabled }

// shouldShowProgress determines if progress bars should be displayed.
func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}

	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			return false
		}
	} else {
		return false
	}

	if logging.Default().Enabled(context.Background(), logging.LevelDebug) {
		return false
	}

	return true
}

// Listener draws the steps of a sync run as a progress bar. The summary
// passed to Finished is printed below the bar.
type Listener struct {
	w     io.Writer
	force bool
	bar   *Bar
}

var _ sync.ProgressListener = (*Listener)(nil)

// NewListener creates a terminal listener writing to w.
func NewListener(w io.Writer) *Listener {
	return &Listener{w: w}
}

// Started implements sync.ProgressListener.
func (l *Listener) Started(msg string, steps int) {
	max := int64(steps)
	if steps < 0 {
		max = -1
	}
	l.bar = New(Options{Max: max, Description: msg, Writer: l.w, Force: l.force})
}

// Step implements sync.ProgressListener.
func (l *Listener) Step(label string) {
	if l.bar != nil {
		l.bar.Describe(label)
	}
}

// StepCompleted implements sync.ProgressListener.
func (l *Listener) StepCompleted() {
	if l.bar != nil {
		_ = l.bar.Add(1)
	}
}

// Finished implements sync.ProgressListener.
func (l *Listener) Finished(summary string) {
	if l.bar != nil {
		_ = l.bar.Finish()
		if l.bar.Enabled() {
			_ = l.bar.Clear()
		}
	}
	l.bar = nil
	if summary != "" && l.w != nil {
		_, _ = fmt.Fprintln(l.w, summary)
	}
}

// LogListener reports sync steps to a logger only.
type LogListener struct {
	logger *slog.Logger
	steps  int
	done   int
}

var _ sync.ProgressListener = (*LogListener)(nil)

// NewLogListener creates a listener logging at info level.
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogListener{logger: logger}
}

// Started implements sync.ProgressListener.
func (l *LogListener) Started(msg string, steps int) {
	l.steps, l.done = steps, 0
	l.logger.Info(msg, slog.Int("steps", steps))
}

// Step implements sync.ProgressListener.
func (l *LogListener) Step(label string) {
	l.logger.Info(label, slog.Int("step", l.done+1), slog.Int("steps", l.steps))
}

// StepCompleted implements sync.ProgressListener.
func (l *LogListener) StepCompleted() {
	l.done++
}

// Finished implements sync.ProgressListener.
func (l *LogListener) Finished(summary string) {
	if summary == "" {
		return
	}
	l.logger.Info(summary, slog.Int("steps", l.done))
}
