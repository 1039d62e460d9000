// Package worker implements the outreach pipeline execution loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/metrics"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// Claims guards per-job exclusivity across the worker pool.
type Claims interface {
	TryAcquire(jobID string) bool
	Release(jobID string)
}

// Config controls Worker behavior.
type Config struct {
	OutputPrefix      string
	DownloadBasePath  string
	Topic             string
	StageTimeout      time.Duration
	SaveIntermediates bool
}

// Worker consumes queue items and runs each job through the pipeline stages.
type Worker struct {
	queue     outreach.Queue
	jobs      outreach.JobRepository
	blobs     outreach.BlobStore
	publisher outreach.Publisher
	stages    []outreach.Stage
	claims    Claims
	clock     outreach.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue outreach.Queue,
	jobs outreach.JobRepository,
	blobs outreach.BlobStore,
	publisher outreach.Publisher,
	stages []outreach.Stage,
	claims Claims,
	clock outreach.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = "outputs"
	}
	if cfg.DownloadBasePath == "" {
		cfg.DownloadBasePath = "/downloads"
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 5 * time.Minute
	}
	return &Worker{
		queue:     queue,
		jobs:      jobs,
		blobs:     blobs,
		publisher: publisher,
		stages:    stages,
		claims:    claims,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item outreach.QueueItem) {
	if w.claims != nil {
		if !w.claims.TryAcquire(item.JobID) {
			w.logger.Debug("job already claimed by another worker", zap.String("job_id", item.JobID))
			return
		}
		defer w.claims.Release(item.JobID)
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	job, err := w.jobs.Get(ctx, item.JobID)
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			w.logger.Warn("queued job no longer exists", zap.String("job_id", item.JobID))
			return
		}
		w.logger.Error("load job failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	if job.Status == outreach.StatusSucceeded {
		w.logger.Debug("job already succeeded, skipping", zap.String("job_id", job.ID))
		return
	}

	job, err = w.jobs.Update(ctx, job.ID, outreach.ClaimPatch())
	if err != nil {
		w.logger.Error("claim job failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	artifact, err := w.loadUpload(ctx, job)
	if err != nil {
		w.failJob(ctx, job, outreach.NewSetupError(err))
		return
	}

	for _, stage := range w.stages {
		artifact, err = w.runStage(ctx, stage, artifact, job)
		if err != nil {
			metrics.ObserveStageFailure(stage.Name())
			w.failJob(ctx, job, outreach.NewStageError(stage.Name(), err))
			return
		}
		job, err = w.jobs.Update(ctx, job.ID, outreach.ProgressPatch(stage.Checkpoint()))
		if err != nil {
			w.logger.Error("checkpoint update failed",
				zap.String("job_id", job.ID),
				zap.String("stage", stage.Name()),
				zap.Error(err),
			)
			return
		}
		w.saveIntermediate(ctx, job.ID, stage.Name(), artifact)
	}

	outputURL, err := w.storeOutput(ctx, job, artifact)
	if err != nil {
		w.failJob(ctx, job, fmt.Errorf("store output: %w", err))
		return
	}

	if _, err := w.jobs.Update(ctx, job.ID, outreach.SuccessPatch(outputURL)); err != nil {
		w.logger.Error("final job update failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	metrics.ObserveJob(string(outreach.StatusSucceeded))
	w.publishTerminal(ctx, job.ID, outreach.StatusSucceeded, outputURL, "")
	w.logger.Info("job succeeded",
		zap.String("job_id", job.ID),
		zap.String("output_url", outputURL),
	)
}

func (w *Worker) loadUpload(ctx context.Context, job outreach.Job) (outreach.Artifact, error) {
	data, err := w.blobs.GetObject(ctx, job.UploadPath)
	if err != nil {
		return outreach.Artifact{}, fmt.Errorf("read upload %q: %w", job.UploadPath, err)
	}
	return outreach.Artifact{Ref: job.UploadPath, Data: data}, nil
}

func (w *Worker) runStage(
	ctx context.Context,
	stage outreach.Stage,
	in outreach.Artifact,
	job outreach.Job,
) (outreach.Artifact, error) {
	stageCtx, cancel := context.WithTimeout(ctx, w.cfg.StageTimeout)
	defer cancel()

	start := w.now()
	out, err := stage.Run(stageCtx, in, job)
	metrics.ObserveStage(stage.Name(), w.now().Sub(start))
	if err != nil {
		return outreach.Artifact{}, err
	}
	return out, nil
}

// saveIntermediate persists a stage artifact for debugging. Failures are
// logged and ignored since the artifact is carried in memory regardless.
func (w *Worker) saveIntermediate(ctx context.Context, jobID, stageName string, artifact outreach.Artifact) {
	if !w.cfg.SaveIntermediates || len(artifact.Data) == 0 {
		return
	}
	blobPath := path.Join(w.cfg.OutputPrefix, fmt.Sprintf("%s_%s.csv", jobID, stageName))
	if _, err := w.blobs.PutObject(ctx, blobPath, "text/csv", artifact.Data); err != nil {
		w.logger.Warn("save intermediate artifact failed",
			zap.String("job_id", jobID),
			zap.String("stage", stageName),
			zap.Error(err),
		)
	}
}

func (w *Worker) storeOutput(ctx context.Context, job outreach.Job, artifact outreach.Artifact) (string, error) {
	if len(artifact.Data) == 0 {
		return "", fmt.Errorf("pipeline produced no output")
	}
	filename := fmt.Sprintf("%s_outreach.csv", job.ID)
	blobPath := path.Join(w.cfg.OutputPrefix, filename)
	if _, err := w.blobs.PutObject(ctx, blobPath, "text/csv", artifact.Data); err != nil {
		return "", err
	}
	return strings.TrimRight(w.cfg.DownloadBasePath, "/") + "/" + filename, nil
}

// failJob records a failure without touching progress, so the last completed
// checkpoint stays visible to callers polling the job.
func (w *Worker) failJob(ctx context.Context, job outreach.Job, cause error) {
	w.logger.Error("job failed",
		zap.String("job_id", job.ID),
		zap.Error(cause),
	)
	if _, err := w.jobs.Update(ctx, job.ID, outreach.FailurePatch(cause.Error())); err != nil {
		w.logger.Error("fail job status update", zap.String("job_id", job.ID), zap.Error(err))
	}
	metrics.ObserveJob(string(outreach.StatusFailed))
	w.publishTerminal(ctx, job.ID, outreach.StatusFailed, "", cause.Error())
}

func (w *Worker) publishTerminal(ctx context.Context, jobID string, status outreach.JobStatus, outputURL, errText string) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	event := outreach.TerminalEvent{
		JobID:     jobID,
		Status:    status,
		OutputURL: outputURL,
		Error:     errText,
		Timestamp: w.now().Format(time.RFC3339),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		w.logger.Warn("publish terminal event failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (w *Worker) now() time.Time {
	if w.clock != nil {
		return w.clock.Now()
	}
	return time.Now().UTC()
}
