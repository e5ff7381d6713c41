package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/chat-exporter/internal/export"
	"github.com/jonathan/chat-exporter/internal/markdown"
	"github.com/jonathan/chat-exporter/internal/observability"
	"github.com/jonathan/chat-exporter/internal/save"
	"github.com/jonathan/chat-exporter/internal/scan"
	"github.com/jonathan/chat-exporter/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run, resume, inspect and finalize bulk exports",
}

var exportStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new export run",
	Long:  "Scan the conversation list, then convert every conversation to Markdown. Progress is persisted continuously; an interrupted run can be picked up with 'export resume'.",
	RunE:  runExportStart,
}

var exportResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume an interrupted export run",
	RunE:  runExportResume,
}

var exportStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the export run at the next conversation boundary",
	RunE:  runExportStop,
}

var exportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the current export run",
	RunE:  runExportStatus,
}

var exportFinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Write a finished run's conversations to disk",
	Long:  "Write every converted conversation of a finished run into the output directory, downloading embedded images alongside and applying front matter, then clear the run state.",
	RunE:  runExportFinalize,
}

var (
	exportConfigPath string
	exportProjectID  string
	exportPattern    string
	exportTags       string
	exportHeaded     bool
	exportVerbose    bool

	finalizeOutputDir string
	finalizeTags      string
)

func init() {
	for _, cmd := range []*cobra.Command{exportStartCmd, exportResumeCmd, exportStopCmd, exportStatusCmd, exportFinalizeCmd} {
		cmd.Flags().StringVarP(&exportConfigPath, "config", "c", "", "Path to JSON config file")
		cmd.Flags().BoolVarP(&exportVerbose, "verbose", "v", false, "Print detailed debug information")
	}
	for _, cmd := range []*cobra.Command{exportStartCmd, exportResumeCmd} {
		cmd.Flags().BoolVar(&exportHeaded, "headed", false, "Run the browser with a visible window")
	}
	exportStartCmd.Flags().StringVar(&exportProjectID, "project", "", "Export only this project's conversations")
	exportStartCmd.Flags().StringVar(&exportPattern, "pattern", "", "Filename pattern, e.g. {title}_{date}_{time}")
	exportStartCmd.Flags().StringVar(&exportTags, "tags", "", "Comma-separated tags for front matter")

	exportFinalizeCmd.Flags().StringVarP(&finalizeOutputDir, "out", "o", "", "Output directory (defaults to the remembered directory)")
	exportFinalizeCmd.Flags().StringVar(&finalizeTags, "tags", "", "Override the tags captured at export start")

	exportCmd.AddCommand(exportStartCmd, exportResumeCmd, exportStopCmd, exportStatusCmd, exportFinalizeCmd)
	rootCmd.AddCommand(exportCmd)
}

// signalContext cancels on interrupt so the run stops at a persisted
// boundary instead of mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runExportStart(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfiguration(exportConfigPath)
	if err != nil {
		return err
	}
	if exportPattern != "" {
		cfg.FilenamePattern = exportPattern
	}
	if exportTags != "" {
		cfg.DefaultTags = exportTags
	}
	log := newLogger(exportVerbose)

	db, err := store.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := newSession(ctx, cfg, exportHeaded, log)
	if err != nil {
		return err
	}
	defer session.Close()

	status := observability.StartStatus("Starting export")
	orch := buildOrchestrator(db, session, cfg.ResolvedBaseURL(), status, log)

	err = orch.Start(ctx, exportProjectID, cfg.Settings())
	return reportRunOutcome(err, status)
}

func runExportResume(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfiguration(exportConfigPath)
	if err != nil {
		return err
	}
	log := newLogger(exportVerbose)

	db, err := store.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := newSession(ctx, cfg, exportHeaded, log)
	if err != nil {
		return err
	}
	defer session.Close()

	status := observability.StartStatus("Resuming export")
	orch := buildOrchestrator(db, session, cfg.ResolvedBaseURL(), status, log)

	err = orch.Resume(ctx)
	return reportRunOutcome(err, status)
}

func runExportStop(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfiguration(exportConfigPath)
	if err != nil {
		return err
	}
	log := newLogger(exportVerbose)

	db, err := store.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs := store.NewRunStore(db)
	orch := export.NewOrchestrator(runs, nil, nil, nil, log)
	if err := orch.Stop(ctx); err != nil {
		if errors.Is(err, export.ErrNoRun) {
			pterm.Info.Println("No export run to stop")
			return nil
		}
		return err
	}
	pterm.Success.Println("Export will stop at the next conversation boundary")
	return nil
}

func runExportStatus(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfiguration(exportConfigPath)
	if err != nil {
		return err
	}
	log := newLogger(exportVerbose)

	db, err := store.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs := store.NewRunStore(db)
	orch := export.NewOrchestrator(runs, nil, nil, nil, log)
	st, err := orch.Status(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		pterm.Info.Println("No export run in progress")
		return nil
	}

	printState(st)
	return nil
}

func runExportFinalize(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfiguration(exportConfigPath)
	if err != nil {
		return err
	}
	log := newLogger(exportVerbose)

	db, err := store.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	handles := store.NewHandleStore(db)
	outputDir := finalizeOutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if outputDir == "" {
		remembered, err := handles.Get(ctx)
		if err != nil {
			return err
		}
		outputDir = remembered
	}
	if outputDir == "" {
		return fmt.Errorf("no output directory: pass --out or set output_dir in the config")
	}

	dir, err := save.OpenDir(outputDir)
	if err != nil {
		return err
	}

	runs := store.NewRunStore(db)
	orch := export.NewOrchestrator(runs, nil, nil, nil, log)
	saver := save.NewSaver(nil, log)

	summary, err := orch.Finalize(ctx, dir, saver, finalizeTags)
	if err != nil {
		if errors.Is(err, export.ErrNothingToFinalize) {
			pterm.Info.Println("No finished export to finalize; run 'export start' first")
			return nil
		}
		return err
	}

	// Remember the directory for the next finalize.
	if err := handles.Put(ctx, outputDir); err != nil {
		log.Debug().Err(err).Msg("failed to remember output directory")
	}

	pterm.Success.Printf("Saved %d conversation(s) to %s\n", summary.Saved, outputDir)
	if summary.Failed > 0 {
		pterm.Error.Printf("  %d conversation(s) failed to save\n", summary.Failed)
	}
	if summary.Skipped > 0 {
		pterm.Info.Printf("  %d conversation(s) had no converted content\n", summary.Skipped)
	}
	return nil
}

// buildOrchestrator wires the full run stack over a live browser session.
func buildOrchestrator(db *store.DB, session interface {
	export.Browser
	scan.Scroller
}, baseURL string, status *observability.Status, log zerolog.Logger) *export.Orchestrator {
	runs := store.NewRunStore(db)
	converter := markdown.New(markdown.Options{})
	collector := scan.NewCollector(session, log).WithProgress(func(round, found int) {
		status.Update(fmt.Sprintf("Scanning conversations (round %d, %d found)", round, found))
	})

	return export.NewOrchestrator(runs, session, converter, collector, log).
		WithBaseURL(baseURL).
		WithStatus(func(mode export.Mode, done, total int) {
			switch mode {
			case export.ModeScanning:
				status.Update("Scanning conversations")
			case export.ModeProcessing:
				status.Update(fmt.Sprintf("Converting conversation %d of %d", done+1, total))
			case export.ModeFinished:
				status.Update("Export finished")
			}
		})
}

// reportRunOutcome translates a run's terminal condition into CLI output.
func reportRunOutcome(err error, status *observability.Status) error {
	switch {
	case err == nil:
		status.Success("Export finished; run 'export finalize' to write the files")
		return nil
	case errors.Is(err, export.ErrNoConversations):
		status.Fail("No conversations found; is the browser logged in?")
		return err
	case errors.Is(err, export.ErrRunInProgress):
		status.Fail("A run is already in progress; 'export resume' continues it, 'export stop' clears it")
		return err
	case errors.Is(err, export.ErrNoRun):
		status.Fail("No export run found; use 'export start'")
		return err
	default:
		status.Fail("Export failed")
		return err
	}
}

// printState renders the persisted run state for 'export status'.
func printState(st *export.State) {
	running := "stopped"
	if st.IsRunning {
		running = "running"
	}
	pterm.DefaultSection.Println("Export run " + st.RunID)
	pterm.Printf("  Phase:      %s (%s)\n", st.Mode, running)
	if st.ProjectID != "" {
		pterm.Printf("  Project:    %s\n", st.ProjectID)
	}
	pterm.Printf("  Queued:     %d\n", len(st.Queue))
	pterm.Printf("  Converted:  %d\n", len(st.Results))
	pterm.Printf("  Remaining:  %d\n", st.Remaining())
	if len(st.Errors) > 0 {
		pterm.Printf("  Failed:     %d\n", len(st.Errors))
		for _, e := range st.Errors {
			pterm.Printf("    - %s: %s\n", e.Title, e.Message)
		}
	}
	if st.Mode == export.ModeFinished {
		pterm.Info.Println("Run 'export finalize' to write the files")
	}
}
