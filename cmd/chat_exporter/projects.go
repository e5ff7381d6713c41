package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonathan/chat-exporter/internal/observability"
	"github.com/jonathan/chat-exporter/internal/projects"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List project workspaces available for scoped export",
	RunE:  runProjects,
}

var (
	projectsConfigPath string
	projectsHeaded     bool
	projectsVerbose    bool
)

func init() {
	projectsCmd.Flags().StringVarP(&projectsConfigPath, "config", "c", "", "Path to JSON config file")
	projectsCmd.Flags().BoolVar(&projectsHeaded, "headed", false, "Run the browser with a visible window")
	projectsCmd.Flags().BoolVarP(&projectsVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(projectsCmd)
}

func runProjects(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfiguration(projectsConfigPath)
	if err != nil {
		return err
	}
	log := newLogger(projectsVerbose)

	session, err := newSession(ctx, cfg, projectsHeaded, log)
	if err != nil {
		return err
	}
	defer session.Close()

	status := observability.StartStatus("Loading project list")
	if err := session.Navigate(ctx, cfg.ResolvedBaseURL()+"/"); err != nil {
		status.Fail("Could not load the host page")
		return err
	}
	if err := session.WaitReady(ctx); err != nil {
		log.Debug().Err(err).Msg("page readiness timed out, scanning anyway")
	}

	htmlStr, err := session.OuterHTML(ctx)
	if err != nil {
		status.Fail("Could not capture the page")
		return err
	}

	feed := projects.NewFeed()
	if err := feed.ScanDocument(htmlStr); err != nil {
		status.Fail("Could not parse the page")
		return err
	}

	entries := feed.GetAll()
	if len(entries) == 0 {
		status.Success("No projects found")
		return nil
	}
	status.Success("Projects found")

	rows := pterm.TableData{{"ID", "Name"}}
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.Name})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
