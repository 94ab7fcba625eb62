// Package grabber sequences one crime-statistics run: fetch state and agency
// data, replace the destination tables, render the chart artifact, and
// publish the run report.
package grabber

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
	"github.com/crimeatlas/crimes-grabber/internal/cde/fanout"
	"github.com/crimeatlas/crimes-grabber/internal/chart"
	"github.com/crimeatlas/crimes-grabber/internal/metrics"
	"github.com/crimeatlas/crimes-grabber/internal/notify"
	"github.com/crimeatlas/crimes-grabber/internal/storage"
)

// Destination tables. Each is fully replaced on every run.
const (
	TableStateCrimes  = "state_crimes"
	TableAgencyInfo   = "agency_info"
	TableAgencyCrimes = "agency_crimes"
)

const defaultConcurrency = 40

// chartContentType is the MIME type stored alongside the chart artifact.
const chartContentType = "text/html; charset=utf-8"

// Config controls one run.
type Config struct {
	State       string
	Concurrency int
	XField      string
	Series      []string
	ChartPrefix string
}

// StageResult reports one completed load stage.
type StageResult struct {
	Table    string
	Rows     int64
	Duration time.Duration
}

// Report summarizes a run for the notifier and the CLI.
type Report struct {
	RunID    string
	State    string
	Started  time.Time
	Finished time.Time
	Stages   []StageResult
	ChartURI string
}

// Grabber drives the stages of a run.
type Grabber struct {
	client    DataClient
	loader    Loader
	artifacts storage.Store
	publisher notify.Publisher
	clock     Clock
	ids       IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Grabber.
func New(
	client DataClient,
	loader Loader,
	artifacts storage.Store,
	publisher notify.Publisher,
	clk Clock,
	ids IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Grabber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Grabber{
		client:    client,
		loader:    loader,
		artifacts: artifacts,
		publisher: publisher,
		clock:     clk,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes the stages in order. Fetch and load failures stop the run and
// propagate; chart and notification failures are logged and contained. The
// finish log line is emitted on every path.
func (g *Grabber) Run(ctx context.Context) (report Report, err error) {
	runID, err := g.ids.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("generate run id: %w", err)
	}

	logger := g.logger.With(zap.String("run_id", runID), zap.String("state", g.cfg.State))
	report = Report{
		RunID:   runID,
		State:   g.cfg.State,
		Started: g.clock.Now(),
	}

	defer func() {
		if report.Finished.IsZero() {
			report.Finished = g.clock.Now()
		}
		duration := report.Finished.Sub(report.Started)
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.ObserveRun(status, duration)
		logger.Info("run finished",
			zap.String("status", status),
			zap.Time("finished_at", report.Finished),
			zap.Duration("duration", duration),
		)
	}()

	logger.Info("run started", zap.Time("started_at", report.Started))

	stateRecords, stage, err := g.loadStage(ctx, logger, TableStateCrimes,
		func(ctx context.Context) ([]cde.Record, error) {
			return g.client.StateArrests(ctx, g.cfg.State)
		})
	if err != nil {
		return report, err
	}
	report.Stages = append(report.Stages, stage)

	dirRecords, stage, err := g.loadStage(ctx, logger, TableAgencyInfo,
		func(ctx context.Context) ([]cde.Record, error) {
			return g.client.AgencyDirectory(ctx, g.cfg.State)
		})
	if err != nil {
		return report, err
	}
	report.Stages = append(report.Stages, stage)

	oris := cde.ORIs(dirRecords)
	logger.Info("agency directory loaded", zap.Int("agencies", len(oris)))

	_, stage, err = g.loadStage(ctx, logger, TableAgencyCrimes,
		func(ctx context.Context) ([]cde.Record, error) {
			return fanout.FetchAll(ctx, g.client, oris, g.cfg.Concurrency, logger), nil
		})
	if err != nil {
		return report, err
	}
	report.Stages = append(report.Stages, stage)

	// Chart failures never abort the run; the tables are already loaded.
	if uri, chartErr := g.storeChart(ctx, report.Started, stateRecords); chartErr != nil {
		logger.Warn("chart stage failed", zap.Error(chartErr))
	} else {
		report.ChartURI = uri
		logger.Info("chart stored", zap.String("uri", uri))
	}

	report.Finished = g.clock.Now()

	if pubErr := g.publishReport(ctx, report); pubErr != nil {
		logger.Warn("run report publish failed", zap.Error(pubErr))
	}

	return report, nil
}

// loadStage fetches one table's records and replaces the table with them.
func (g *Grabber) loadStage(
	ctx context.Context,
	logger *zap.Logger,
	table string,
	fetch func(context.Context) ([]cde.Record, error),
) ([]cde.Record, StageResult, error) {
	start := g.clock.Now()

	records, err := fetch(ctx)
	if err != nil {
		logger.Error("stage fetch failed", zap.String("table", table), zap.Error(err))
		return nil, StageResult{}, fmt.Errorf("fetch %s: %w", table, err)
	}

	rows, err := g.loader.Load(ctx, table, records)
	if err != nil {
		logger.Error("stage load failed", zap.String("table", table), zap.Error(err))
		return nil, StageResult{}, fmt.Errorf("load %s: %w", table, err)
	}

	result := StageResult{Table: table, Rows: rows, Duration: g.clock.Now().Sub(start)}
	logger.Info("stage complete",
		zap.String("table", table),
		zap.Int64("rows", rows),
		zap.Duration("duration", result.Duration),
	)
	return records, result, nil
}

// storeChart renders the state-level chart and hands it to the artifact store.
func (g *Grabber) storeChart(ctx context.Context, runDate time.Time, records []cde.Record) (string, error) {
	var buf bytes.Buffer
	err := chart.Render(&buf, records, chart.Config{
		State:  g.cfg.State,
		XField: g.cfg.XField,
		Series: g.cfg.Series,
	})
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	name := storage.ChartObjectName(g.cfg.ChartPrefix, g.cfg.State, runDate)
	uri, err := g.artifacts.Put(ctx, name, chartContentType, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store chart: %w", err)
	}
	return uri, nil
}

// publishReport sends the run report to the configured publisher.
func (g *Grabber) publishReport(ctx context.Context, report Report) error {
	stages := make([]map[string]any, 0, len(report.Stages))
	for _, s := range report.Stages {
		stages = append(stages, map[string]any{
			"table":       s.Table,
			"rows":        s.Rows,
			"duration_ms": s.Duration.Milliseconds(),
		})
	}

	payload := map[string]any{
		"run_id":    report.RunID,
		"state":     report.State,
		"started":   report.Started.Format(time.RFC3339),
		"finished":  report.Finished.Format(time.RFC3339),
		"stages":    stages,
		"chart_uri": report.ChartURI,
	}

	if err := g.publisher.Publish(ctx, report.RunID, payload); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}
