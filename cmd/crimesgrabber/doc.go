// Package main hosts the crimesgrabber entrypoint.
//
// Architecture overview:
//   - CLI: cmd builds a cobra root command whose hooks wire the runtime (config via Viper, zap logging,
//     artifact store, run-report publisher, optional metrics listener) and tear it down after the subcommand
//     returns. The grab subcommand owns the run itself.
//   - Fetch pipeline: internal/cde wraps the Crime Data Explorer API behind a Colly-based fetcher. Non-2xx
//     responses are data (logged, empty result), transport and decode failures are errors. The per-agency
//     fan-out in internal/cde/fanout bounds in-flight calls and drops failed agencies without aborting
//     siblings.
//   - Persistence: internal/database holds a pgx pool scoped to one run. Each destination table
//     (state_crimes, agency_info, agency_crimes) is dropped, recreated from the records' inferred columns,
//     and bulk-loaded with CopyFrom. Runs fully replace previous contents.
//   - Artifacts & fanout: internal/chart renders the go-echarts summary line chart; the artifact store
//     (local/GCS/noop) persists it under charts/{state}-crimes-{date}.html. A compact JSON run report is
//     published to Pub/Sub when a topic is configured. Chart and publish failures are contained.
//   - Configuration & plumbing: Viper populates config from a file and CRIMES_* env vars; zap provides
//     structured logging with a dated file sink; Prometheus counters track fetches, loaded rows, and run
//     outcomes, exported on the optional metrics listener.
//
// Operational notes:
//   - Concurrency model: a single control goroutine drives the stages; the only parallelism is the bounded
//     agency fan-out pool. The run blocks until the pool drains. SIGINT/SIGTERM cancel the context, which
//     propagates through every blocking call.
//   - Failure semantics: fetch and load errors stop the run and exit non-zero; chart and notify errors are
//     logged and contained. There are no retries; a failed run is simply re-run.
//   - Observability: logs carry the run id and state on every line; the finish line is emitted on every
//     path. /metrics and /healthz are served when metrics.listen is set.
//
// Quick checklist:
//   - Configure env vars: CRIMES_DB_HOST, CRIMES_DB_USER, CRIMES_DB_PASSWORD, CRIMES_DB_NAME,
//     CRIMES_API_KEY, plus CRIMES_GRAB_STATE, CRIMES_STORAGE_* and CRIMES_NOTIFY_* when the defaults do
//     not fit.
//   - Run locally: go run ./cmd/crimesgrabber grab --config config.yaml (or rely solely on env overrides).
//   - Schedule it: the binary is one-shot and idempotent per day; a cron or Cloud Scheduler entry per
//     state is the intended deployment.
package main
