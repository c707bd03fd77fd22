package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/serd/internal/harness"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Filter string
}

// ScenarioResult holds the result of a single scenario.
type ScenarioResult struct {
	Name       string   `json:"name"`
	File       string   `json:"file"`
	Pass       bool     `json:"pass"`
	Outcome    string   `json:"outcome,omitempty"`
	RunError   string   `json:"run_error,omitempty"`
	Transcript []string `json:"transcript,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// SimulateResult holds the overall simulation result.
type SimulateResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario-file-or-dir>...",
		Short: "Run scripted scenarios",
		Long: `Run YAML scenarios through the executor with a scripted I/O boundary.

Every scenario runs the Chat service on a fresh event context and compares
the produced transcript and outcome with the scenario's expectations.

Exit codes:
  0 - All scenarios passed
  1 - Invalid arguments (missing paths, bad filter)
  2 - One or more scenarios failed

Examples:
  serd simulate ./scenarios
  serd simulate ./scenarios --filter "chat_*"
  serd simulate ./scenarios/stop_ends_run.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on their file name")

	return cmd
}

func runSimulate(opts *SimulateOptions, paths []string, cmd *cobra.Command) error {
	_, logger, err := loadSettings(opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitUsage, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	result := SimulateResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		sr := runScenarioFile(cmd, file, logger)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := out.Success(result, func(w io.Writer) { writeSimulateText(w, result) }); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

// findScenarioFiles returns path itself when it is a file, or every YAML file
// below it when it is a directory.
func findScenarioFiles(path string, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		ok, err := matchFilter(path, filter)
		if err != nil || !ok {
			return nil, err
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		ok, err := matchFilter(p, filter)
		if err != nil {
			return err
		}
		if ok {
			files = append(files, p)
		}
		return nil
	})

	return files, err
}

func matchFilter(path, filter string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	matched, err := filepath.Match(filter, name)
	if err != nil {
		return false, fmt.Errorf("invalid filter pattern: %w", err)
	}
	return matched, nil
}

func runScenarioFile(cmd *cobra.Command, file string, logger *slog.Logger) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			File:   file,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	logger.Debug("running scenario", "name", scenario.Name, "file", file)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := harness.Run(ctx, scenario, harness.WithLogger(logger))
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			File:   file,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	return ScenarioResult{
		Name:       scenario.Name,
		File:       file,
		Pass:       result.Pass,
		Outcome:    result.Outcome,
		RunError:   result.RunError,
		Transcript: result.Transcript,
		Errors:     result.Errors,
	}
}

func writeSimulateText(w io.Writer, result SimulateResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
