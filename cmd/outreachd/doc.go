// Package main hosts the outreach pipeline service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, job submission,
//     job status, admin retry, and CSV download endpoints. Uploaded lead files
//     are validated, persisted to the BlobStore, recorded in the JobRepository,
//     and enqueued for processing.
//   - Dispatcher & queue: jobs flow through a bounded in-memory queue sized by
//     config.Worker.QueueDepth and are fanned out to a fixed worker pool sized
//     by config.Worker.Count. A claim table ensures no two workers process the
//     same job. Context cancellation stops workers cleanly on shutdown.
//   - Pipeline: each worker runs a job through five stages in order: parse
//     the spreadsheet, enrich leads with LinkedIn profile URLs via DuckDuckGo,
//     scrape profile text through a reader proxy, summarize each profile with
//     the LLM, and generate a personalized cold email per lead. Progress
//     checkpoints are persisted after every stage so clients can poll.
//   - Persistence & fanout: the result CSV (and optional per-stage
//     intermediates) are written to the configured BlobStore (local/GCS). Job
//     records live in Postgres with a file-backed fallback, or in the file
//     store alone when no DSN is configured. A compact Pub/Sub notification is
//     published when a job reaches a terminal state and a topic is configured.
//   - Recovery & retry: on startup a sweeper fails any job left non-terminal
//     by a previous process before workers start, and the admin retry
//     endpoints re-enqueue queued or failed jobs under a shared token.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported via the
//     /metrics handler. The service is stateless across requests apart from
//     the job queue, suitable for Cloud Run scale-out with a single instance.
//
// Quick checklist:
//   - Configure env vars with the OUTREACH_ prefix: OUTREACH_SERVER_PORT,
//     OUTREACH_WORKER_COUNT, OUTREACH_DB_DSN, storage (OUTREACH_STORAGE_*),
//     OUTREACH_OPENAI_API_KEY, and OUTREACH_AUTH_ADMIN_TOKEN for the retry
//     endpoints. A local .env file is loaded when present.
//   - Run locally: go run ./cmd/outreachd -config config.yaml (or rely solely
//     on env overrides).
package main
