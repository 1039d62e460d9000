package failover

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

type stubRepo struct {
	insertErr error
	updateErr error
	getErr    error
	listErr   error

	inserts int
	updates int
	gets    int
	lists   int

	job outreach.Job
}

func (s *stubRepo) Insert(ctx context.Context, job outreach.Job) (outreach.Job, error) {
	s.inserts++
	if s.insertErr != nil {
		return outreach.Job{}, s.insertErr
	}
	return job, nil
}

func (s *stubRepo) Update(ctx context.Context, jobID string, patch outreach.JobPatch) (outreach.Job, error) {
	s.updates++
	if s.updateErr != nil {
		return outreach.Job{}, s.updateErr
	}
	return s.job, nil
}

func (s *stubRepo) Get(ctx context.Context, jobID string) (outreach.Job, error) {
	s.gets++
	if s.getErr != nil {
		return outreach.Job{}, s.getErr
	}
	return s.job, nil
}

func (s *stubRepo) List(ctx context.Context, limit int) ([]outreach.Job, error) {
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []outreach.Job{s.job}, nil
}

func unavailable() error {
	return fmt.Errorf("get job: %w: dial tcp: connection refused", outreach.ErrBackendUnavailable)
}

func TestHealthyPrimaryServesDirectly(t *testing.T) {
	t.Parallel()

	primary := &stubRepo{job: outreach.Job{ID: "job-1"}}
	fallback := &stubRepo{}
	repo := New(primary, fallback, zap.NewNop())

	job, err := repo.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, 1, primary.gets)
	require.Zero(t, fallback.gets)
	require.False(t, repo.Degraded())
}

func TestUnavailablePrimaryRoutesToFallback(t *testing.T) {
	t.Parallel()

	primary := &stubRepo{getErr: unavailable(), insertErr: unavailable()}
	fallback := &stubRepo{job: outreach.Job{ID: "job-1", Status: outreach.StatusQueued}}
	repo := New(primary, fallback, zap.NewNop())

	job, err := repo.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, outreach.StatusQueued, job.Status)
	require.Equal(t, 1, fallback.gets)
	require.True(t, repo.Degraded())

	_, err = repo.Insert(context.Background(), outreach.Job{ID: "job-2"})
	require.NoError(t, err)
	require.Equal(t, 1, fallback.inserts)
}

func TestNotFoundPassesThroughWithoutFallback(t *testing.T) {
	t.Parallel()

	primary := &stubRepo{getErr: outreach.ErrNotFound}
	fallback := &stubRepo{}
	repo := New(primary, fallback, zap.NewNop())

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, outreach.ErrNotFound)
	require.Zero(t, fallback.gets)
	require.False(t, repo.Degraded())
}

func TestDegradedClearsAfterRecovery(t *testing.T) {
	t.Parallel()

	primary := &stubRepo{listErr: unavailable()}
	fallback := &stubRepo{}
	repo := New(primary, fallback, zap.NewNop())

	_, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, repo.Degraded())

	primary.listErr = nil
	_, err = repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.False(t, repo.Degraded())
}
