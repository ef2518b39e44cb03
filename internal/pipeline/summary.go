package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Summary holds the counts from one pipeline run.
type Summary struct {
	RunID string

	// Subscriptions is the number of subscriptions started;
	// SubscriptionsFailed of those ended early on an isolated error.
	Subscriptions       int
	SubscriptionsFailed int

	// Fetched counts papers accepted from searches, after the per-subscription cap.
	Fetched int

	// New, Updated and Skipped are disjoint: a revised paper that already
	// has its document counts as Updated only.
	New        int
	Updated    int
	Skipped    int
	Downloaded int
	Previews   int

	// Failed counts failed store writes, downloads, and preview saves.
	Failed int

	// Stopped reports that the stop signal cut the run short.
	Stopped bool

	Duration time.Duration
}

// HasFailures reports whether any subscription or paper failed.
func (s Summary) HasFailures() bool {
	return s.SubscriptionsFailed > 0 || s.Failed > 0
}

// Print writes a one-line human-readable summary to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nRun summary: %d new, %d updated, %d skipped, %d downloaded, %d previews, %d failed (fetched: %d, subscriptions: %d/%d ok)",
		s.New, s.Updated, s.Skipped, s.Downloaded, s.Previews, s.Failed,
		s.Fetched, s.Subscriptions-s.SubscriptionsFailed, s.Subscriptions)
	if s.Stopped {
		fmt.Fprint(w, " [stopped]")
	}
	fmt.Fprintf(w, " in %s\n", s.Duration.Round(time.Millisecond))
}

func (s Summary) log(log zerolog.Logger) {
	ev := log.Info()
	if s.HasFailures() {
		ev = log.Warn()
	}
	ev.Int("subscriptions", s.Subscriptions).
		Int("subscriptions_failed", s.SubscriptionsFailed).
		Int("fetched", s.Fetched).
		Int("new", s.New).
		Int("updated", s.Updated).
		Int("skipped", s.Skipped).
		Int("downloaded", s.Downloaded).
		Int("previews", s.Previews).
		Int("failed", s.Failed).
		Bool("stopped", s.Stopped).
		Dur("duration", s.Duration).
		Msg("run complete")
}
