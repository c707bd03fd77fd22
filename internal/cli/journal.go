package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/serd/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunSummary is one run in the journal listing.
type RunSummary struct {
	ID        string `json:"id"`
	Game      string `json:"game"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	Records   int    `json:"records"`
}

// TranscriptEntry is one record of a run transcript.
type TranscriptEntry struct {
	Seq   int64  `json:"seq"`
	Kind  string `json:"kind"`
	Actor uint64 `json:"actor"`
	Text  string `json:"text"`
}

// RunTranscript is the output of "journal --run".
type RunTranscript struct {
	Run     RunSummary        `json:"run"`
	Entries []TranscriptEntry `json:"entries"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded runs",
		Long: `List the runs recorded in a transcript journal, or print the transcript
of one run.

Examples:
  serd journal --db ./serd.db
  serd journal --db ./serd.db --run 0190f2c4-...
  serd journal --db ./serd.db --run 0190f2c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id whose transcript to print")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open would create an empty journal.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitUsage, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open journal", err)
	}
	defer j.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.RunID == "" {
		runs, err := j.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list runs", err)
		}
		summaries := make([]RunSummary, 0, len(runs))
		for _, r := range runs {
			summaries = append(summaries, summarize(r))
		}
		return out.Success(summaries, func(w io.Writer) { writeRunsText(w, summaries) })
	}

	run, err := j.GetRun(ctx, opts.RunID)
	if errors.Is(err, journal.ErrRunNotFound) {
		return WrapExitError(ExitUsage, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read run", err)
	}
	entries, err := j.Transcript(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read transcript", err)
	}

	transcript := RunTranscript{
		Run:     summarize(run),
		Entries: make([]TranscriptEntry, 0, len(entries)),
	}
	for _, e := range entries {
		transcript.Entries = append(transcript.Entries, TranscriptEntry{
			Seq:   e.Seq,
			Kind:  string(e.Kind),
			Actor: e.Actor,
			Text:  e.Text,
		})
	}
	return out.Success(transcript, func(w io.Writer) { writeTranscriptText(w, transcript) })
}

func summarize(r journal.Run) RunSummary {
	s := RunSummary{
		ID:        r.ID,
		Game:      r.Game,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
		Outcome:   r.Outcome,
		Reason:    r.Reason,
		Records:   r.Records,
	}
	if !r.EndedAt.IsZero() {
		s.EndedAt = r.EndedAt.UTC().Format(time.RFC3339)
	}
	return s
}

func writeRunsText(w io.Writer, runs []RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-8s %-8s %4d records  %s\n", r.ID, r.Game, r.Outcome, r.Records, r.StartedAt)
	}
}

func writeTranscriptText(w io.Writer, t RunTranscript) {
	fmt.Fprintf(w, "Run %s (%s): %s\n", t.Run.ID, t.Run.Game, t.Run.Outcome)
	if t.Run.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", t.Run.Reason)
	}
	for _, e := range t.Entries {
		fmt.Fprintf(w, "%4d %-7s %d %s\n", e.Seq, e.Kind, e.Actor, e.Text)
	}
}
