package retry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/clock/system"
	"github.com/aguldbeck/ai-outreach-agent/internal/metrics"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
	"github.com/aguldbeck/ai-outreach-agent/internal/queue/memory"
	memrepo "github.com/aguldbeck/ai-outreach-agent/internal/repository/memory"
)

const testToken = "operator-secret"

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func newController(t *testing.T) (*Controller, *memrepo.JobRepository, *memory.Queue) {
	t.Helper()
	repo := memrepo.NewJobRepository(system.New())
	queue := memory.NewQueue(16)
	return New(repo, queue, testToken, 0, zap.NewNop()), repo, queue
}

func seed(t *testing.T, repo *memrepo.JobRepository, id string, status outreach.JobStatus, progress int, errText string) {
	t.Helper()
	_, err := repo.Insert(context.Background(), outreach.Job{ID: id, Status: outreach.StatusQueued})
	require.NoError(t, err)
	if status != outreach.StatusQueued {
		patch := outreach.StatusPatch(status)
		patch.Progress = &progress
		patch.ErrorText = &errText
		_, err = repo.Update(context.Background(), id, patch)
		require.NoError(t, err)
	}
}

func TestRetryAllQueuedRequiresToken(t *testing.T) {
	t.Parallel()

	c, _, _ := newController(t)
	_, err := c.RetryAllQueued(context.Background(), "wrong-token")
	require.ErrorIs(t, err, outreach.ErrUnauthorized)

	_, _, err = c.RetryOne(context.Background(), "", "job-1")
	require.ErrorIs(t, err, outreach.ErrUnauthorized)
}

func TestRetryDisabledWithoutConfiguredToken(t *testing.T) {
	t.Parallel()

	repo := memrepo.NewJobRepository(system.New())
	c := New(repo, memory.NewQueue(1), "", 0, zap.NewNop())
	_, err := c.RetryAllQueued(context.Background(), "")
	require.ErrorIs(t, err, outreach.ErrUnauthorized)
}

func TestRetryAllQueuedEnqueuesOnlyQueuedJobs(t *testing.T) {
	t.Parallel()

	c, repo, queue := newController(t)
	seed(t, repo, "job-q1", outreach.StatusQueued, 0, "")
	seed(t, repo, "job-q2", outreach.StatusQueued, 0, "")
	seed(t, repo, "job-p", outreach.StatusProcessing, 40, "")
	seed(t, repo, "job-f", outreach.StatusFailed, 25, "stage enrich: boom")

	count, err := c.RetryAllQueued(context.Background(), testToken)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		item, err := queue.Dequeue(context.Background())
		require.NoError(t, err)
		seen[item.JobID] = true
	}
	require.True(t, seen["job-q1"])
	require.True(t, seen["job-q2"])
}

func TestRetryAllQueuedScansBeyondInitialListing(t *testing.T) {
	t.Parallel()

	repo := memrepo.NewJobRepository(system.New())
	queue := memory.NewQueue(16)
	// Initial listing of 2 must widen until every queued job is found.
	c := New(repo, queue, testToken, 2, zap.NewNop())

	ids := []string{"job-1", "job-2", "job-3", "job-4", "job-5"}
	for _, id := range ids {
		seed(t, repo, id, outreach.StatusQueued, 0, "")
	}

	count, err := c.RetryAllQueued(context.Background(), testToken)
	require.NoError(t, err)
	require.Equal(t, len(ids), count)
	require.Equal(t, len(ids), queue.Depth())
}

func TestRetryAllQueuedEmptyIsNoop(t *testing.T) {
	t.Parallel()

	c, _, _ := newController(t)
	count, err := c.RetryAllQueued(context.Background(), testToken)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRetryOneResetsFailedJob(t *testing.T) {
	t.Parallel()

	c, repo, queue := newController(t)
	seed(t, repo, "job-1", outreach.StatusFailed, 60, "stage scrape: timeout")

	job, enqueued, err := c.RetryOne(context.Background(), testToken, "job-1")
	require.NoError(t, err)
	require.True(t, enqueued)
	require.Equal(t, outreach.StatusQueued, job.Status)
	require.Zero(t, job.Progress)
	require.Empty(t, job.ErrorText)

	item, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)
}

func TestRetryOneQueuedJobJustEnqueues(t *testing.T) {
	t.Parallel()

	c, repo, queue := newController(t)
	seed(t, repo, "job-1", outreach.StatusQueued, 0, "")

	job, enqueued, err := c.RetryOne(context.Background(), testToken, "job-1")
	require.NoError(t, err)
	require.True(t, enqueued)
	require.Equal(t, outreach.StatusQueued, job.Status)

	item, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)
}

func TestRetryOneLeavesTerminalAndRunningJobsAlone(t *testing.T) {
	t.Parallel()

	c, repo, _ := newController(t)
	seed(t, repo, "job-done", outreach.StatusSucceeded, 100, "")
	seed(t, repo, "job-busy", outreach.StatusProcessing, 40, "")

	job, enqueued, err := c.RetryOne(context.Background(), testToken, "job-done")
	require.NoError(t, err)
	require.False(t, enqueued)
	require.Equal(t, outreach.StatusSucceeded, job.Status)

	job, enqueued, err = c.RetryOne(context.Background(), testToken, "job-busy")
	require.NoError(t, err)
	require.False(t, enqueued)
	require.Equal(t, outreach.StatusProcessing, job.Status)
}

func TestRetryOneMissingJob(t *testing.T) {
	t.Parallel()

	c, _, _ := newController(t)
	_, _, err := c.RetryOne(context.Background(), testToken, "missing")
	require.ErrorIs(t, err, outreach.ErrNotFound)
}
