package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aguldbeck/ai-outreach-agent/internal/clock/system"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

func newRepo(t *testing.T) *JobRepository {
	t.Helper()
	repo, err := New(Config{Path: filepath.Join(t.TempDir(), "jobs.json")}, system.New())
	require.NoError(t, err)
	return repo
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, system.New())
	require.Error(t, err)
}

func TestInsertGetRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	_, err := repo.Insert(context.Background(), outreach.Job{
		ID:       "job-1",
		UserID:   "user-1",
		Filename: "leads.csv",
		Status:   outreach.StatusQueued,
		Payload:  map[string]string{"notes": "from webinar"},
	})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, outreach.StatusQueued, got.Status)
	require.Equal(t, "from webinar", got.Payload["notes"])
}

func TestRecordsSurviveReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.json")
	repo, err := New(Config{Path: path}, system.New())
	require.NoError(t, err)
	_, err = repo.Insert(context.Background(), outreach.Job{ID: "job-1", Status: outreach.StatusQueued})
	require.NoError(t, err)
	_, err = repo.Update(context.Background(), "job-1", outreach.FailurePatch("stage parse: bad header"))
	require.NoError(t, err)

	reopened, err := New(Config{Path: path}, system.New())
	require.NoError(t, err)
	got, err := reopened.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, outreach.StatusFailed, got.Status)
	require.Equal(t, "stage parse: bad header", got.ErrorText)
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	_, err := repo.Update(context.Background(), "ghost", outreach.ProgressPatch(40))
	require.ErrorIs(t, err, outreach.ErrNotFound)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.Insert(context.Background(), outreach.Job{ID: id, Status: outreach.StatusQueued})
		require.NoError(t, err)
	}
	jobs, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.True(t, !jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
}
