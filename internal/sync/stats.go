package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/service"
)

// GenericFailureMessage is shown when the failure details are not meant
// for the user.
const GenericFailureMessage = "There was a problem communicating with the service. Please try again later."

// Stats is the outcome of one direction, or of a full run.
type Stats struct {
	Direction     Direction
	CreatedGuides int
	AddedFeeds    int
	RemovedFeeds  int
	UpdatedFeeds  int
	SavedFeeds    int
	LoadedPrefs   int
	SavedPrefs    int
	Cancelled     bool
	Failed        bool
	Message       string
	Start         time.Time
	End           time.Time

	parts []*Stats
}

func newStats(d Direction, start time.Time) *Stats {
	return &Stats{Direction: d, Start: start}
}

// Duration returns the wall time of the run.
func (s *Stats) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// fail marks the run failed and picks the user-facing message. A service
// error without a cause speaks for itself; anything else gets the generic
// message and its details go to the log.
func (s *Stats) fail(err error, logger *slog.Logger) {
	s.Failed = true
	s.Message = UserMessage(err)
	logger.Error("synchronization failed", logging.Direction(string(s.Direction)), logging.Err(err))
}

// UserMessage returns the message a user should see for err.
func UserMessage(err error) string {
	var se *service.Error
	if errors.As(err, &se) && se.Cause == nil && se.Message != "" {
		return se.Message
	}
	return GenericFailureMessage
}

// Parts returns the per-direction stats of a full run.
func (s *Stats) Parts() []*Stats {
	return s.parts
}

// Text renders a human-readable summary.
func (s *Stats) Text() string {
	if len(s.parts) > 0 {
		texts := make([]string, 0, len(s.parts))
		for _, p := range s.parts {
			texts = append(texts, p.Text())
		}
		return strings.Join(texts, "\n")
	}

	var sb strings.Builder
	label := cases.Title(language.English).String("sync " + string(s.Direction))

	if s.Failed {
		sb.WriteString(fmt.Sprintf("%s failed: %s", label, s.Message))
		return sb.String()
	}

	sb.WriteString(label + " completed")
	if s.Cancelled {
		sb.WriteString(" (additions cancelled)")
	}

	var details []string
	switch s.Direction {
	case DirectionIn:
		details = appendCount(details, s.CreatedGuides, "guide created", "guides created")
		details = appendCount(details, s.AddedFeeds, "feed added", "feeds added")
		details = appendCount(details, s.RemovedFeeds, "feed removed", "feeds removed")
		details = appendCount(details, s.UpdatedFeeds, "feed updated", "feeds updated")
		details = appendCount(details, s.LoadedPrefs, "preference category loaded", "preference categories loaded")
	case DirectionOut:
		details = appendCount(details, s.SavedFeeds, "feed saved", "feeds saved")
		details = appendCount(details, s.SavedPrefs, "preference category saved", "preference categories saved")
	}
	if len(details) > 0 {
		sb.WriteString(": " + strings.Join(details, ", "))
	}
	return sb.String()
}

func appendCount(details []string, n int, singular, plural string) []string {
	switch {
	case n == 1:
		return append(details, "1 "+singular)
	case n > 1:
		return append(details, fmt.Sprintf("%d %s", n, plural))
	default:
		return details
	}
}

// Combine merges the stats of an inbound and an optional outbound run into
// the stats of a full run.
func Combine(in, out *Stats) *Stats {
	full := &Stats{Direction: DirectionFull, Start: in.Start, End: in.End}
	for _, p := range []*Stats{in, out} {
		if p == nil {
			continue
		}
		full.parts = append(full.parts, p)
		full.CreatedGuides += p.CreatedGuides
		full.AddedFeeds += p.AddedFeeds
		full.RemovedFeeds += p.RemovedFeeds
		full.UpdatedFeeds += p.UpdatedFeeds
		full.SavedFeeds += p.SavedFeeds
		full.LoadedPrefs += p.LoadedPrefs
		full.SavedPrefs += p.SavedPrefs
		full.Cancelled = full.Cancelled || p.Cancelled
		if p.Failed && !full.Failed {
			full.Failed = true
			full.Message = p.Message
		}
		if p.End.After(full.End) {
			full.End = p.End
		}
	}
	return full
}
