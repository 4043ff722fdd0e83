// Package cmd provides command-line interface commands for the NuVex triage
// service.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"nuvex/bootstrap"
	"nuvex/core"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags for triage commands
var (
	outputJSON bool
	noColor    bool
	quiet      bool
)

const (
	// maxOffenseFileSize bounds offense files read from disk.
	maxOffenseFileSize = 10 * 1024 * 1024
	defaultTimeout     = 5 * time.Minute
)

// NewTriageCmd creates the 'triage' command tree.
func NewTriageCmd() *cobra.Command {
	triageCmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage offenses from the command line",
		Long: `Triage one or more offense files without starting the HTTP server.

Each file holds a single offense as JSON. The full pipeline runs for every
offense: behavior analysis, reputation enrichment, similar-case retrieval,
the decision engine, and report generation for escalations.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	triageCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output analyses in JSON format")
	triageCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	triageCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	triageCmd.AddCommand(newRunCmd())

	return triageCmd
}

// newRunCmd creates the 'run' subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <offense.json> [more.json...]",
		Short: "Run the triage pipeline over offense files",
		Long:  "Run the full triage pipeline over one or more offense JSON files. Multiple files are processed concurrently on the worker pool.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, err := bootstrap.NewApp(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Shutdown()

			offenses, err := loadOffenses(args)
			if err != nil {
				return err
			}

			analyses := runBatch(ctx, app, offenses)
			return renderAnalyses(analyses)
		},
	}
}

// loadOffenses reads every file up front so a malformed file fails the run
// before any triage starts.
func loadOffenses(paths []string) ([]*core.Offense, error) {
	offenses := make([]*core.Offense, 0, len(paths))
	for _, path := range paths {
		offense, err := loadOffense(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		offenses = append(offenses, offense)
	}
	return offenses, nil
}

func loadOffense(path string) (*core.Offense, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxOffenseFileSize {
		return nil, fmt.Errorf("file exceeds %d byte limit", maxOffenseFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var offense core.Offense
	if err := json.Unmarshal(data, &offense); err != nil {
		return nil, fmt.Errorf("invalid offense JSON: %w", err)
	}
	if offense.Description == "" {
		return nil, fmt.Errorf("offense is missing a description")
	}
	return &offense, nil
}

// runBatch triages a single offense inline, or fans a batch out over the
// worker pool. Results keep input order.
func runBatch(ctx context.Context, app *bootstrap.App, offenses []*core.Offense) []*core.Analysis {
	analyses := make([]*core.Analysis, len(offenses))

	if len(offenses) == 1 {
		analyses[0] = app.Pipeline.Triage(ctx, offenses[0])
		return analyses
	}

	app.Pool.Start()
	for i, offense := range offenses {
		err := app.Pool.Submit(func() {
			analyses[i] = app.Pipeline.Triage(ctx, offense)
		})
		if err != nil {
			// Queue full or pool stopped: triage inline rather than drop.
			analyses[i] = app.Pipeline.Triage(ctx, offense)
		}
	}
	app.Pool.Wait()
	return analyses
}

func renderAnalyses(analyses []*core.Analysis) error {
	if outputJSON {
		return outputAsJSON(analyses)
	}
	for _, analysis := range analyses {
		renderAnalysis(analysis)
	}
	if !quiet {
		escalated := 0
		for _, a := range analyses {
			if a.Decision == core.DecisionEscalate {
				escalated++
			}
		}
		fmt.Println()
		infoColor.Printf("Processed %d offense(s): %d escalated, %d closed as false positive\n",
			len(analyses), escalated, len(analyses)-escalated)
	}
	return nil
}

func renderAnalysis(a *core.Analysis) {
	fmt.Println()
	headerColor.Printf("Offense %s\n", a.OffenseID)
	fmt.Printf("  Pattern:  %s\n", a.Pattern)
	fmt.Printf("  Behavior: %s\n", a.Behavior)

	switch a.Decision {
	case core.DecisionEscalate:
		errorColor.Printf("  Decision: ESCALATE")
		if a.RiskLevel != "" {
			fmt.Printf(" (risk: %s)", a.RiskLevel)
		}
		fmt.Println()
	default:
		successColor.Println("  Decision: false positive")
	}

	for _, reason := range a.Reasons {
		fmt.Printf("    - %s\n", reason)
	}
	if a.ReportPath != "" {
		infoColor.Printf("  Report:   %s\n", a.ReportPath)
	}
	for _, warning := range a.Warnings {
		warningColor.Printf("  Warning:  %s\n", warning)
	}
}

func outputAsJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
