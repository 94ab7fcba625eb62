// Package cmd defines and implements the CLI commands for the crimesgrabber
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
	"github.com/crimeatlas/crimes-grabber/internal/clock/system"
	"github.com/crimeatlas/crimes-grabber/internal/database"
	"github.com/crimeatlas/crimes-grabber/internal/grabber"
	uuidgen "github.com/crimeatlas/crimes-grabber/internal/id/uuid"
)

// userAgent identifies the grabber to the CDE API.
const userAgent = "crimes-grabber/1.0 (+https://github.com/crimeatlas/crimes-grabber)"

// withDatabase acquires the scoped store handle. It is a variable so tests
// can substitute a mock-backed provider.
var withDatabase = database.With

// newGrabCmd creates and configures the 'grab' subcommand. It retrieves the
// runtime from the context, acquires the database handle for the duration of
// the run, and prints the per-table summary when the run succeeds.
func newGrabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grab",
		Short: "Runs one statistics grab",
		Long: `Fetches state-level and per-agency arrest data from the Crime Data
Explorer API, replaces the destination tables, stores the summary chart
artifact, and publishes the run report when a publisher is configured.`,

		RunE: runGrabCommand,
	}
	return cmd
}

func runGrabCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}

	var report grabber.Report
	err = withDatabase(cmd.Context(), rt.Config.DB, rt.Logger.Named("database"), func(provider *database.Provider) error {
		var runErr error
		report, runErr = buildGrabber(rt, provider).Run(cmd.Context())
		return runErr
	})
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), report)
	return nil
}

func resolveRuntime(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("application services not initialized")
	}
	return rt, nil
}

func buildGrabber(rt *Runtime, provider *database.Provider) *grabber.Grabber {
	fetcher := cde.NewFetcher(cde.FetcherConfig{
		UserAgent: userAgent,
		Timeout:   rt.Config.API.Timeout(),
	})
	client := cde.NewClient(cde.ClientConfig{
		BaseURL:  rt.Config.API.BaseURL,
		APIKey:   rt.Config.API.Key,
		YearFrom: rt.Config.Grab.YearFrom,
		YearTo:   rt.Config.Grab.YearTo,
	}, fetcher, rt.Logger.Named("cde"))

	return grabber.New(
		client,
		provider,
		rt.App.Artifacts,
		rt.App.Publisher,
		system.New(),
		uuidgen.New(),
		grabber.Config{
			State:       rt.Config.Grab.State,
			Concurrency: rt.Config.Grab.Concurrency,
			XField:      rt.Config.Chart.XField,
			Series:      rt.Config.Chart.Series,
			ChartPrefix: rt.Config.Storage.Prefix,
		},
		rt.Logger.Named("grabber"),
	)
}

func printSummary(w io.Writer, report grabber.Report) {
	elapsed := report.Finished.Sub(report.Started).Round(time.Millisecond)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"TABLE", "ROWS", "DURATION"})

	var total int64
	for _, stage := range report.Stages {
		total += stage.Rows
		tbl.AppendRow(table.Row{stage.Table, humanize.Comma(stage.Rows), stage.Duration.Round(time.Millisecond)})
	}
	tbl.AppendFooter(table.Row{"TOTAL", humanize.Comma(total), elapsed})

	fmt.Fprintln(w, tbl.Render())
	if report.ChartURI != "" {
		fmt.Fprintf(w, "chart: %s\n", report.ChartURI)
	}
	color.New(color.FgGreen).Fprintf(w, "grab completed in %s\n", elapsed)
}
